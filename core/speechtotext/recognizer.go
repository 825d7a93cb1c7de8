package speechtotext

import "context"

// Recognizer turns audio (or another input) into finalized utterances.
//
// Transcribe starts recognition and returns once it is running; results are
// delivered through the callbacks in opts until ctx is cancelled or Stop is
// called. Implementations that do not consume audio ignore SendAudio.
type Recognizer interface {
	Transcribe(ctx context.Context, opts ...TranscriptionOption) error
	SendAudio(audio []byte) error
	Stop() error
}

// AudioFree is implemented by recognizers that produce utterances without
// an audio device, such as typed input. A capture source does not need a
// device for them.
type AudioFree interface {
	RequiresAudio() bool
}

// RequiresAudio reports whether r needs audio frames to produce results.
func RequiresAudio(r Recognizer) bool {
	if free, ok := r.(AudioFree); ok {
		return free.RequiresAudio()
	}
	return true
}
