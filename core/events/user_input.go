package events

const (
	// KindUserCaptureStarted identifies the capture source becoming active.
	KindUserCaptureStarted Kind = "user_input.capture_started"
	// KindUserCaptureStopped identifies the capture source becoming inactive.
	KindUserCaptureStopped Kind = "user_input.capture_stopped"
	// KindUserCaptureUnavailable identifies a failed device acquisition.
	KindUserCaptureUnavailable Kind = "user_input.capture_unavailable"
	// KindUserAudioLevel identifies a best-effort input amplitude sample.
	KindUserAudioLevel Kind = "user_input.audio_level"
	// KindUserUtteranceCaptured identifies a finalized recognized utterance.
	KindUserUtteranceCaptured Kind = "user_input.utterance_captured"
)

// UserCaptureStarted marks when capture becomes active.
type UserCaptureStarted struct{ Base }

func NewUserCaptureStarted() UserCaptureStarted {
	return UserCaptureStarted{Base: NewBase(KindUserCaptureStarted)}
}

// UserCaptureStopped marks when capture stops.
type UserCaptureStopped struct{ Base }

func NewUserCaptureStopped() UserCaptureStopped {
	return UserCaptureStopped{Base: NewBase(KindUserCaptureStopped)}
}

// UserCaptureUnavailable carries the acquisition failure. The session keeps
// running without capture.
type UserCaptureUnavailable struct {
	Base
	Err error
}

func NewUserCaptureUnavailable(err error) UserCaptureUnavailable {
	return UserCaptureUnavailable{Base: NewBase(KindUserCaptureUnavailable), Err: err}
}

// UserAudioLevel carries a normalized amplitude in [0, 1]. It is lossy and
// only meant for visualization.
type UserAudioLevel struct {
	Base
	Level float64
}

func NewUserAudioLevel(level float64) UserAudioLevel {
	return UserAudioLevel{Base: NewBase(KindUserAudioLevel), Level: level}
}

// UserUtteranceCaptured carries a finalized utterance from the recognizer.
type UserUtteranceCaptured struct {
	Base
	Text string
}

func NewUserUtteranceCaptured(text string) UserUtteranceCaptured {
	return UserUtteranceCaptured{Base: NewBase(KindUserUtteranceCaptured), Text: text}
}
