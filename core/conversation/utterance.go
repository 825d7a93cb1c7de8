package conversation

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Origin records which path produced an utterance. The log keeps both a
// local echo and a server acknowledgement of the same user text when the
// backend sends one back.
type Origin string

const (
	// OriginLocalEcho marks user text appended by the relay after a send.
	OriginLocalEcho Origin = "local_echo"
	// OriginServerAck marks user text the backend echoed with the user tag.
	OriginServerAck Origin = "server_ack"
	// OriginChannel marks untagged inbound frames.
	OriginChannel Origin = "channel"
)

// Utterance is one finalized, attributed span of conversation. Values are
// immutable once appended; the log hands out copies.
type Utterance struct {
	ID        string
	Sequence  uint64
	Role      Role
	Text      string
	Origin    Origin
	Timestamp time.Time
}

func NewUserUtterance(text string, origin Origin) Utterance {
	return Utterance{Role: RoleUser, Text: text, Origin: origin}
}

func NewAssistantUtterance(text string) Utterance {
	return Utterance{Role: RoleAssistant, Text: text, Origin: OriginChannel}
}
