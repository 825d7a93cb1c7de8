package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	interview "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
)

// Messages forwarded from session callbacks into the program.
type utteranceMsg struct{ Utterance conversation.Utterance }
type statusMsg struct {
	Status channel.Status
	Err    error
}
type tickMsg struct{ Elapsed time.Duration }
type suppressionMsg struct{ Suppressed bool }
type levelMsg struct{ Level float64 }
type noticeMsg struct{ Text string }
type endedMsg struct{ Summary interview.Summary }

// controller is the part of the session the terminal client drives.
type controller interface {
	Submit(text string) error
	End() error
	CancelSpeech()
}

type sessionController struct{ session *interview.Session }

func (c sessionController) Submit(text string) error { return c.session.Submit(text) }
func (c sessionController) End() error               { return c.session.End() }
func (c sessionController) CancelSpeech()            { c.session.Speaker().Cancel() }

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1)
	youStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	aiStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	speakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	levelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusColors = map[channel.Status]string{
		channel.StatusIdle:       "244",
		channel.StatusConnecting: "220",
		channel.StatusOpen:       "42",
		channel.StatusErrored:    "196",
		channel.StatusClosed:     "244",
	}
)

type model struct {
	session controller

	viewport viewport.Model
	input    textinput.Model

	entries    []conversation.Utterance
	status     channel.Status
	elapsed    time.Duration
	suppressed bool
	level      float64
	notice     string
	summary    *interview.Summary
	ending     bool

	width, height int
	ready         bool
}

func newModel(session controller) model {
	input := textinput.New()
	input.Placeholder = "Type an answer and press Enter"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	return model{session: session, input: input, status: channel.StatusIdle}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.viewportHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.viewportHeight()
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refreshConversation()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.summary != nil {
				return m, tea.Quit
			}
			if !m.ending {
				m.ending = true
				m.notice = "Ending interview..."
				return m, m.end()
			}
			return m, nil
		case "ctrl+s":
			m.session.CancelSpeech()
			return m, nil
		case "enter":
			text := m.input.Value()
			if strings.TrimSpace(text) == "" || m.summary != nil {
				return m, nil
			}
			m.input.Reset()
			return m, m.submit(text)
		}

	case utteranceMsg:
		m.entries = append(m.entries, msg.Utterance)
		m.refreshConversation()

	case statusMsg:
		m.status = msg.Status
		if msg.Err != nil {
			m.notice = "Connection lost: " + msg.Err.Error()
		} else if msg.Status == channel.StatusClosed && m.summary == nil && !m.ending {
			m.notice = "Disconnected from the interviewer. Press Esc to end."
		}

	case tickMsg:
		m.elapsed = msg.Elapsed

	case suppressionMsg:
		m.suppressed = msg.Suppressed

	case levelMsg:
		m.level = m.level*0.6 + msg.Level*0.4

	case noticeMsg:
		m.notice = msg.Text

	case endedMsg:
		summary := msg.Summary
		m.summary = &summary
		m.elapsed = summary.Elapsed
		m.notice = fmt.Sprintf("Interview ended after %s. Press Esc to quit.", interview.FormatElapsed(summary.Elapsed))
		if m.ending {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) submit(text string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if err := session.Submit(text); err != nil {
			return noticeMsg{Text: "Not sent: " + err.Error()}
		}
		return noticeMsg{}
	}
}

func (m model) end() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if err := session.End(); err != nil {
			return noticeMsg{Text: "Teardown failed: " + err.Error()}
		}
		return nil
	}
}

func (m model) viewportHeight() int {
	// header, input and notice lines
	return max(m.height-4, 1)
}

func (m *model) refreshConversation() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderConversation(m.entries, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderConversation(entries []conversation.Utterance, width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for _, entry := range entries {
		label := aiStyle.Render("AI Interviewer")
		if entry.Role == conversation.RoleUser {
			label = youStyle.Render("You")
			if entry.Origin == conversation.OriginServerAck {
				label += dimStyle.Render(" (received)")
			}
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wordwrap.String(entry.Text, max(width-2, 10)))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	status := lipgloss.NewStyle().Foreground(lipgloss.Color(statusColors[m.status])).Render("● " + m.status.String())
	header := headerStyle.Render("AI Interview "+interview.FormatElapsed(m.elapsed)) + " " + status
	if m.suppressed {
		header += " " + speakStyle.Render("interviewer speaking")
	}
	if m.level > 0.01 {
		header += " " + levelStyle.Render(levelBar(m.level))
	}

	notice := ""
	if m.notice != "" {
		notice = noticeStyle.Render(m.notice)
	} else {
		notice = dimStyle.Render("Enter: send · Ctrl+S: skip speech · Esc: end interview")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), notice)
}

func levelBar(level float64) string {
	const width = 10
	filled := min(int(level*width*4), width)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}
