package events

import (
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
)

const (
	// KindChannelStatusChanged identifies a channel state transition.
	KindChannelStatusChanged Kind = "channel.status_changed"
	// KindChannelMessage identifies a classified inbound frame after it was
	// appended to the log.
	KindChannelMessage Kind = "channel.message"
)

type ChannelStatusChanged struct {
	Base
	Status channel.Status
	Err    error
}

func NewChannelStatusChanged(status channel.Status, err error) ChannelStatusChanged {
	return ChannelStatusChanged{Base: NewBase(KindChannelStatusChanged), Status: status, Err: err}
}

type ChannelMessage struct {
	Base
	Utterance conversation.Utterance
}

func NewChannelMessage(utterance conversation.Utterance) ChannelMessage {
	return ChannelMessage{Base: NewBase(KindChannelMessage), Utterance: utterance}
}
