package events

import "github.com/koscakluka/ema-interview/core/conversation"

const (
	// KindRelaySubmitted identifies a frame sent by the relay.
	KindRelaySubmitted Kind = "relay.submitted"
	// KindRelayDropped identifies a submission that was not sent.
	KindRelayDropped Kind = "relay.dropped"
)

type DropReason string

const (
	DropReasonEmpty          DropReason = "empty"
	DropReasonSuppressed     DropReason = "suppressed"
	DropReasonChannelNotOpen DropReason = "channel_not_open"
	DropReasonChannelError   DropReason = "channel_error"
)

// RelaySubmitted carries the local echo appended after a successful send.
type RelaySubmitted struct {
	Base
	Utterance conversation.Utterance
}

func NewRelaySubmitted(utterance conversation.Utterance) RelaySubmitted {
	return RelaySubmitted{Base: NewBase(KindRelaySubmitted), Utterance: utterance}
}

type RelayDropped struct {
	Base
	Text   string
	Reason DropReason
	Err    error
}

func NewRelayDropped(text string, reason DropReason, err error) RelayDropped {
	return RelayDropped{Base: NewBase(KindRelayDropped), Text: text, Reason: reason, Err: err}
}
