package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

func TestSpeechGeneratorReportsMarksAudioAndEnd(t *testing.T) {
	server := newFakeSpeakServer(t)
	client, err := NewTextToSpeechClient("secret", WithSpeakURL(server.url))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	var mu sync.Mutex
	var marks []string
	audioBytes := 0
	ended := make(chan struct{})
	generator, err := client.NewSpeechGenerator(context.Background(),
		texttospeech.WithSpeechMarkCallback(func(mark string) {
			mu.Lock()
			marks = append(marks, mark)
			mu.Unlock()
		}),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			mu.Lock()
			audioBytes += len(audio)
			mu.Unlock()
		}),
		texttospeech.WithSpeechEndedCallback(func() { close(ended) }),
	)
	if err != nil {
		t.Fatalf("expected generator, got %v", err)
	}

	if err := generator.SendText("Hello, "); err != nil {
		t.Fatalf("expected send text to succeed, got %v", err)
	}
	if err := generator.SendText("tell me about yourself."); err != nil {
		t.Fatalf("expected send text to succeed, got %v", err)
	}
	if err := generator.Mark(); err != nil {
		t.Fatalf("expected mark to succeed, got %v", err)
	}
	if err := generator.SendText("Take your time."); err != nil {
		t.Fatalf("expected send text to succeed, got %v", err)
	}
	if err := generator.EndOfText(); err != nil {
		t.Fatalf("expected end of text to succeed, got %v", err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected speech to end")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(marks) != 2 || marks[0] != "Hello, tell me about yourself." || marks[1] != "Take your time." {
		t.Fatalf("expected marks per segment, got %q", marks)
	}
	if audioBytes == 0 {
		t.Fatalf("expected audio to be delivered")
	}
	if got := server.Spoken(); got != "Hello, tell me about yourself.Take your time." {
		t.Fatalf("expected all text to reach the server, got %q", got)
	}

	if err := generator.SendText("late"); err == nil {
		t.Fatalf("expected send after end to fail")
	}
}

func TestCancelStopsAudioAndIsIdempotent(t *testing.T) {
	server := newFakeSpeakServer(t)
	client, err := NewTextToSpeechClient("secret", WithSpeakURL(server.url))
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}

	endedCalls := 0
	generator, err := client.NewSpeechGenerator(context.Background(),
		texttospeech.WithSpeechEndedCallback(func() { endedCalls++ }),
	)
	if err != nil {
		t.Fatalf("expected generator, got %v", err)
	}
	if err := generator.SendText("a long answer"); err != nil {
		t.Fatalf("expected send text to succeed, got %v", err)
	}

	if err := generator.Cancel(); err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	if err := generator.Cancel(); err != nil {
		t.Fatalf("expected repeated cancel to be ignored, got %v", err)
	}
	if err := generator.SendText("more"); err == nil {
		t.Fatalf("expected send after cancel to fail")
	}
	if endedCalls != 0 {
		t.Fatalf("expected cancelled speech not to report an end, got %d", endedCalls)
	}
}

func TestNewTextToSpeechClientValidates(t *testing.T) {
	if _, err := NewTextToSpeechClient(""); err == nil {
		t.Fatalf("expected missing api key to fail")
	}
	if _, err := NewTextToSpeechClient("key", WithVoice("robot")); err == nil {
		t.Fatalf("expected invalid voice to fail")
	}
	if voice, err := ParseVoice(""); err != nil || voice != defaultVoice {
		t.Fatalf("expected empty voice to select default, got %q (%v)", voice, err)
	}
	if _, err := ParseVoice("aura-2-apollo-en"); err != nil {
		t.Fatalf("expected known voice to parse, got %v", err)
	}
}

type fakeSpeakServer struct {
	url string

	mu     sync.Mutex
	spoken strings.Builder
}

func (s *fakeSpeakServer) Spoken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spoken.String()
}

func newFakeSpeakServer(t *testing.T) *fakeSpeakServer {
	t.Helper()

	fake := &fakeSpeakServer{}
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg websocketMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}
			switch msg.Type {
			case "Speak":
				fake.mu.Lock()
				fake.spoken.WriteString(msg.Text)
				fake.mu.Unlock()
			case "Flush":
				_ = conn.WriteMessage(websocket.BinaryMessage, make([]byte, 64))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed","sequence_id":0}`))
			case "Close":
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	fake.url = "ws" + strings.TrimPrefix(server.URL, "http")
	return fake
}
