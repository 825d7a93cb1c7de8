package main

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	interview "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
)

type stubController struct {
	mu        sync.Mutex
	submitted []string
	ended     int
	cancelled int
	submitErr error
}

func (c *stubController) Submit(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return c.submitErr
	}
	c.submitted = append(c.submitted, text)
	return nil
}

func (c *stubController) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended++
	return nil
}

func (c *stubController) CancelSpeech() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled++
}

func sized(t *testing.T, m model) model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model)
}

func typeText(m model, text string) model {
	for _, r := range text {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(model)
	}
	return m
}

func TestModelSubmitsTypedAnswer(t *testing.T) {
	stub := &stubController{}
	m := typeText(sized(t, newModel(stub)), "I am an engineer")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	if cmd == nil {
		t.Fatalf("expected a submit command")
	}
	if msg := cmd(); msg != (noticeMsg{}) {
		t.Fatalf("expected empty notice, got %#v", msg)
	}
	if len(stub.submitted) != 1 || stub.submitted[0] != "I am an engineer" {
		t.Fatalf("expected submitted answer, got %v", stub.submitted)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input reset, got %q", m.input.Value())
	}
}

func TestModelIgnoresBlankAnswer(t *testing.T) {
	stub := &stubController{}
	m := typeText(sized(t, newModel(stub)), "   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no command for blank answer")
	}
}

func TestModelShowsSubmitFailure(t *testing.T) {
	stub := &stubController{submitErr: channel.ErrChannelNotOpen}
	m := typeText(sized(t, newModel(stub)), "hello")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated, _ := m.Update(cmd())
	m = updated.(model)
	if !strings.Contains(m.notice, "Not sent") {
		t.Fatalf("expected failure notice, got %q", m.notice)
	}
}

func TestModelRendersConversation(t *testing.T) {
	m := sized(t, newModel(&stubController{}))

	for _, msg := range []tea.Msg{
		utteranceMsg{Utterance: conversation.NewAssistantUtterance("Hello, tell me about yourself")},
		utteranceMsg{Utterance: conversation.NewUserUtterance("I am an engineer", conversation.OriginLocalEcho)},
		statusMsg{Status: channel.StatusOpen},
		tickMsg{Elapsed: 65 * time.Second},
		suppressionMsg{Suppressed: true},
	} {
		updated, _ := m.Update(msg)
		m = updated.(model)
	}

	view := m.View()
	for _, want := range []string{"AI Interviewer", "Hello, tell me about yourself", "You", "I am an engineer", "01:05", "open", "interviewer speaking"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got:\n%s", want, view)
		}
	}
}

func TestModelEndsThenQuits(t *testing.T) {
	stub := &stubController{}
	m := sized(t, newModel(stub))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(model)
	if !m.ending || cmd == nil {
		t.Fatalf("expected ending with a command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("expected no message from end, got %#v", msg)
	}
	if stub.ended != 1 {
		t.Fatalf("expected End called once, got %d", stub.ended)
	}

	// A second Esc while ending does nothing.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatalf("expected no command while ending")
	}

	_, cmd = m.Update(endedMsg{Summary: interview.Summary{Elapsed: 3 * time.Second}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestModelKeepsRunningAfterRemoteEnd(t *testing.T) {
	m := sized(t, newModel(&stubController{}))

	updated, _ := m.Update(endedMsg{Summary: interview.Summary{Elapsed: 90 * time.Second}})
	m = updated.(model)
	if m.summary == nil {
		t.Fatalf("expected summary kept on the model")
	}
	if !strings.Contains(m.notice, "01:30") {
		t.Fatalf("expected summary notice, got %q", m.notice)
	}
}

func TestModelCancelsSpeech(t *testing.T) {
	stub := &stubController{}
	m := sized(t, newModel(stub))

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if stub.cancelled != 1 {
		t.Fatalf("expected speech cancelled once, got %d", stub.cancelled)
	}
}

func TestRenderConversationMarksServerAck(t *testing.T) {
	out := renderConversation([]conversation.Utterance{
		conversation.NewUserUtterance("hi", conversation.OriginServerAck),
	}, 40)
	if !strings.Contains(out, "(received)") {
		t.Fatalf("expected ack marker, got %q", out)
	}
}

func TestLevelBar(t *testing.T) {
	if got := levelBar(0); got != strings.Repeat("▯", 10) {
		t.Fatalf("expected empty bar, got %q", got)
	}
	if got := levelBar(1); got != strings.Repeat("▮", 10) {
		t.Fatalf("expected full bar, got %q", got)
	}
}
