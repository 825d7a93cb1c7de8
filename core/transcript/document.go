// Package transcript archives a finished interview.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-interview/core/conversation"
)

type Entry struct {
	Sequence  uint64              `json:"sequence"`
	Role      conversation.Role   `json:"role" jsonschema:"enum=user,enum=assistant"`
	Text      string              `json:"text"`
	Origin    conversation.Origin `json:"origin" jsonschema:"enum=local_echo,enum=server_ack,enum=channel"`
	Timestamp time.Time           `json:"timestamp"`
}

// Document is the archived form of one session.
type Document struct {
	SessionID       string    `json:"session_id"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Entries         []Entry   `json:"entries"`
	// Evaluation is set by the interview backend once the interview is over.
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// FromUtterances builds a document from a log snapshot.
func FromUtterances(sessionID string, elapsed time.Duration, endedAt time.Time, utterances []conversation.Utterance) (Document, error) {
	doc := Document{
		SessionID:       sessionID,
		EndedAt:         endedAt,
		DurationSeconds: int(elapsed / time.Second),
		Entries:         []Entry{},
	}
	if len(utterances) == 0 {
		return doc, nil
	}
	if err := copier.Copy(&doc.Entries, utterances); err != nil {
		return Document{}, fmt.Errorf("failed to copy utterances: %w", err)
	}
	return doc, nil
}

// WriteText writes the conversation as "You: ..." and "AI: ..." lines.
// Server acknowledgements repeat text already present as a local echo and
// are left out.
func WriteText(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)
	for _, entry := range doc.Entries {
		if entry.Origin == conversation.OriginServerAck {
			continue
		}
		speaker := "AI"
		if entry.Role == conversation.RoleUser {
			speaker = "You"
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\n", speaker, entry.Text); err != nil {
			return fmt.Errorf("failed to write transcript line: %w", err)
		}
	}
	if doc.Evaluation != nil {
		if err := writeEvaluation(bw, *doc.Evaluation); err != nil {
			return fmt.Errorf("failed to write evaluation: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush transcript: %w", err)
	}
	return nil
}

func WriteJSON(w io.Writer, doc Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return nil
}

// Schema describes the JSON export.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.ReflectFromType(reflect.TypeOf(Document{}))
}

// WriteSchema writes Schema as indented JSON.
func WriteSchema(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Schema()); err != nil {
		return fmt.Errorf("failed to encode transcript schema: %w", err)
	}
	return nil
}
