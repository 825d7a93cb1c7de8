package events

import "time"

const (
	// KindSessionConnected identifies the channel opening for the session.
	KindSessionConnected Kind = "session.connected"
	// KindSessionTick identifies a one second timer tick.
	KindSessionTick Kind = "session.tick"
	// KindSessionEnded identifies session termination. It is emitted exactly
	// once per session.
	KindSessionEnded Kind = "session.ended"
)

type SessionConnected struct {
	Base
	SessionID string
}

func NewSessionConnected(sessionID string) SessionConnected {
	return SessionConnected{Base: NewBase(KindSessionConnected), SessionID: sessionID}
}

type SessionTick struct {
	Base
	Elapsed time.Duration
}

func NewSessionTick(elapsed time.Duration) SessionTick {
	return SessionTick{Base: NewBase(KindSessionTick), Elapsed: elapsed}
}

type EndReason string

const (
	EndReasonRequested    EndReason = "requested"
	EndReasonContextDone  EndReason = "context_done"
	EndReasonDisconnected EndReason = "disconnected"
)

type SessionEnded struct {
	Base
	SessionID  string
	Reason     EndReason
	Elapsed    time.Duration
	Utterances int
	Err        error
}

func NewSessionEnded(sessionID string, reason EndReason, elapsed time.Duration, utterances int, err error) SessionEnded {
	return SessionEnded{
		Base:       NewBase(KindSessionEnded),
		SessionID:  sessionID,
		Reason:     reason,
		Elapsed:    elapsed,
		Utterances: utterances,
		Err:        err,
	}
}
