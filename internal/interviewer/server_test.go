package interviewer

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/upload"
	"github.com/koscakluka/ema-interview/internal/config"
)

func newTestBackend(t *testing.T, maxQuestions int, questioner Questioner) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.MaxQuestions = maxQuestions
	backend := NewServer(cfg, questioner)
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)
	return backend, server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/interview"
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("expected dial to succeed, got %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected frame, got %v", err)
	}
	return string(data)
}

func TestScriptedQuestionerGreetsThenAsks(t *testing.T) {
	questioner := &ScriptedQuestioner{Greeting: "hi", Questions: []string{"q1", "q2"}}
	ctx := context.Background()

	greeting, _ := questioner.Ask(ctx, Interview{})
	first, _ := questioner.Ask(ctx, Interview{History: []Turn{{Role: conversation.RoleAssistant, Text: "hi"}}})
	if greeting != "hi" || first != "q1" {
		t.Fatalf("expected greeting then q1, got %q and %q", greeting, first)
	}
}

func TestInterviewProtocol(t *testing.T) {
	questioner := &ScriptedQuestioner{Greeting: "Hello, tell me about yourself", Questions: []string{"Why Go?", "Why here?"}}
	_, server := newTestBackend(t, 2, questioner)
	conn := dial(t, server)

	if got := readFrame(t, conn); got != "Hello, tell me about yourself" {
		t.Fatalf("expected greeting, got %q", got)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte("   "))
	_ = conn.WriteMessage(websocket.TextMessage, []byte("  I am an engineer  "))
	if got := readFrame(t, conn); got != "__USER__::I am an engineer" {
		t.Fatalf("expected tagged echo, got %q", got)
	}
	if got := readFrame(t, conn); got != "Why Go?" {
		t.Fatalf("expected first question, got %q", got)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte("Simplicity"))
	if got := readFrame(t, conn); got != "__USER__::Simplicity" {
		t.Fatalf("expected tagged echo, got %q", got)
	}
	if got := readFrame(t, conn); got != ClosingLine {
		t.Fatalf("expected closing line after the last answer, got %q", got)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte("one more thing"))
	if got := readFrame(t, conn); got != "__USER__::one more thing" {
		t.Fatalf("expected echo after closing, got %q", got)
	}
}

type repeatingQuestioner struct {
	mu      sync.Mutex
	answers []string
	calls   int
}

func (q *repeatingQuestioner) Ask(context.Context, Interview) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	answer := q.answers[min(q.calls, len(q.answers)-1)]
	q.calls++
	return answer, nil
}

func TestInterviewAsksAgainWhenQuestionRepeats(t *testing.T) {
	questioner := &repeatingQuestioner{answers: []string{"Tell me about Go", "Tell me about Go", "Tell me about Rust"}}
	_, server := newTestBackend(t, 5, questioner)
	conn := dial(t, server)

	readFrame(t, conn)
	_ = conn.WriteMessage(websocket.TextMessage, []byte("sure"))
	readFrame(t, conn)
	if got := readFrame(t, conn); got != "Tell me about Rust" {
		t.Fatalf("expected a new question after the repeat, got %q", got)
	}
	questioner.mu.Lock()
	defer questioner.mu.Unlock()
	if questioner.calls != 3 {
		t.Fatalf("expected 3 questioner calls, got %d", questioner.calls)
	}
}

type failingQuestioner struct{}

func (failingQuestioner) Ask(context.Context, Interview) (string, error) {
	return "", errors.New("model unavailable")
}

func TestInterviewClosesWhenQuestionerFails(t *testing.T) {
	_, server := newTestBackend(t, 5, failingQuestioner{})
	conn := dial(t, server)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close")
	}
}

func TestUploadResume(t *testing.T) {
	backend, server := newTestBackend(t, 5, nil)
	client := upload.NewClient(server.URL + "/upload_resume")

	result, err := client.UploadResume(context.Background(), "resume.txt", strings.NewReader("Ada Lovelace\nGo, distributed systems"))
	if err != nil {
		t.Fatalf("expected upload to succeed, got %v", err)
	}
	if !bytes.Contains(result.ParsedResume, []byte(`"filename":"resume.txt"`)) {
		t.Fatalf("expected parsed resume with filename, got %s", result.ParsedResume)
	}
	resume := backend.Resume()
	if resume == nil || !strings.HasPrefix(resume.Text, "Ada Lovelace") {
		t.Fatalf("expected resume text to be kept, got %+v", resume)
	}
}

func TestUploadResumeRejectsEmptyOrMissingFile(t *testing.T) {
	_, server := newTestBackend(t, 5, nil)

	_, err := upload.NewClient(server.URL+"/upload_resume").UploadResume(context.Background(), "resume.pdf", strings.NewReader(""))
	var statusErr *upload.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty file, got %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()
	resp, err := http.Post(server.URL+"/upload_resume", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("expected request to succeed, got %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing file field, got %d", resp.StatusCode)
	}
}
