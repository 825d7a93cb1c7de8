package interview

import (
	"errors"
	"sync"
	"testing"

	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/events"
)

type stubSender struct {
	mu     sync.Mutex
	frames []string
	err    error
}

func (s *stubSender) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, text)
	return nil
}

func (s *stubSender) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func TestRelayDropsEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		sender := &stubSender{}
		log := conversation.NewLog()
		relay := NewRelay(sender, log)

		if err := relay.Submit(text); !errors.Is(err, ErrEmptyUtterance) {
			t.Fatalf("expected ErrEmptyUtterance for %q, got %v", text, err)
		}
		if got := len(sender.Frames()); got != 0 {
			t.Fatalf("expected no frames for %q, got %d", text, got)
		}
		if got := log.Len(); got != 0 {
			t.Fatalf("expected no log entries for %q, got %d", text, got)
		}
	}
}

func TestRelaySuppression(t *testing.T) {
	sender := &stubSender{}
	log := conversation.NewLog()
	relay := NewRelay(sender, log)

	relay.SetSuppressed(true)
	if err := relay.Submit("ok"); !errors.Is(err, ErrSuppressed) {
		t.Fatalf("expected ErrSuppressed, got %v", err)
	}
	if got := len(sender.Frames()); got != 0 {
		t.Fatalf("expected no frames while suppressed, got %d", got)
	}
	if got := log.Len(); got != 0 {
		t.Fatalf("expected no log entries while suppressed, got %d", got)
	}

	relay.SetSuppressed(false)
	if err := relay.Submit("ok"); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	frames := sender.Frames()
	if len(frames) != 1 || frames[0] != "ok" {
		t.Fatalf("expected exactly one frame \"ok\", got %v", frames)
	}
	entries := log.Snapshot()
	if len(entries) != 1 || entries[0].Role != conversation.RoleUser || entries[0].Text != "ok" {
		t.Fatalf("expected one user entry \"ok\", got %+v", entries)
	}
	if entries[0].Origin != conversation.OriginLocalEcho {
		t.Fatalf("expected local echo origin, got %q", entries[0].Origin)
	}
}

func TestRelaySendsTextVerbatim(t *testing.T) {
	sender := &stubSender{}
	relay := NewRelay(sender, conversation.NewLog())

	if err := relay.Submit("  padded answer  "); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if got := sender.Frames()[0]; got != "  padded answer  " {
		t.Fatalf("expected verbatim frame, got %q", got)
	}
}

func TestRelayDoesNotEchoFailedSends(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected events.DropReason
	}{
		{name: "not open", err: channel.ErrChannelNotOpen, expected: events.DropReasonChannelNotOpen},
		{name: "transport failure", err: &channel.ChannelError{Op: "send", Err: errors.New("broken pipe")}, expected: events.DropReasonChannelError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var dropped []events.RelayDropped
			log := conversation.NewLog()
			relay := NewRelay(&stubSender{err: testCase.err}, log, WithRelayEventHandler(func(event events.Event) {
				if typed, ok := event.(events.RelayDropped); ok {
					dropped = append(dropped, typed)
				}
			}))

			if err := relay.Submit("hello"); !errors.Is(err, testCase.err) {
				t.Fatalf("expected %v, got %v", testCase.err, err)
			}
			if got := log.Len(); got != 0 {
				t.Fatalf("expected no log entries, got %d", got)
			}
			if len(dropped) != 1 || dropped[0].Reason != testCase.expected {
				t.Fatalf("expected one drop with reason %q, got %+v", testCase.expected, dropped)
			}
		})
	}
}

func TestRelaySetSuppressedReportsChanges(t *testing.T) {
	var changes []bool
	relay := NewRelay(&stubSender{}, conversation.NewLog(), WithRelayEventHandler(func(event events.Event) {
		if typed, ok := event.(events.SuppressionChanged); ok {
			changes = append(changes, typed.Suppressed)
		}
	}))

	if !relay.SetSuppressed(true) {
		t.Fatalf("expected first set to change the flag")
	}
	if relay.SetSuppressed(true) {
		t.Fatalf("expected repeated set to be a no-op")
	}
	relay.SetSuppressed(false)

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Fatalf("expected [true false], got %v", changes)
	}
}

func TestRelaySerializesConcurrentSubmits(t *testing.T) {
	sender := &stubSender{}
	log := conversation.NewLog()
	relay := NewRelay(sender, log)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = relay.Submit("answer")
		}()
	}
	wg.Wait()

	if got := len(sender.Frames()); got != 50 {
		t.Fatalf("expected 50 frames, got %d", got)
	}
	if got := log.Len(); got != 50 {
		t.Fatalf("expected 50 log entries, got %d", got)
	}
}
