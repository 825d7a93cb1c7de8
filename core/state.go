package interview

import (
	"time"

	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/events"
)

// State is a point-in-time view of the session.
type State struct {
	ConnectionStatus   channel.Status
	Elapsed            time.Duration
	SpeakingSuppressed bool
	CaptureActive      bool
	Ended              bool
}

// Summary describes a finished session.
type Summary struct {
	SessionID  string
	Reason     events.EndReason
	Elapsed    time.Duration
	EndedAt    time.Time
	Utterances []conversation.Utterance
	// Err holds teardown failures. Transcript sink failures are not included.
	Err error
}
