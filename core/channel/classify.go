package channel

import (
	"strings"

	"github.com/koscakluka/ema-interview/core/conversation"
)

// UserTag prefixes inbound frames that carry server-confirmed user speech.
const UserTag = "__USER__::"

// Message is a classified inbound frame.
type Message struct {
	Role conversation.Role
	Text string
	// Tagged is set when the frame carried UserTag.
	Tagged bool
}

// Classify strips the user tag when present. Untagged frames are assistant
// speech. The remaining text is kept verbatim.
func Classify(frame string) Message {
	if text, ok := strings.CutPrefix(frame, UserTag); ok {
		return Message{Role: conversation.RoleUser, Text: text, Tagged: true}
	}
	return Message{Role: conversation.RoleAssistant, Text: frame}
}

// Utterance converts the message into a log entry with the matching origin.
func (m Message) Utterance() conversation.Utterance {
	if m.Role == conversation.RoleUser {
		return conversation.NewUserUtterance(m.Text, conversation.OriginServerAck)
	}
	return conversation.NewAssistantUtterance(m.Text)
}
