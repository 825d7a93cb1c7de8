package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}
	if config.Endpoint != "ws://localhost:8000/ws/interview" {
		t.Fatalf("expected default endpoint, got %q", config.Endpoint)
	}
	if config.UploadURL != "http://localhost:8000/upload_resume" {
		t.Fatalf("expected default upload url, got %q", config.UploadURL)
	}
	if config.PingInterval() != 30*time.Second {
		t.Fatalf("expected 30s ping interval, got %v", config.PingInterval())
	}
	if config.MaxQuestions != 5 {
		t.Fatalf("expected 5 questions, got %d", config.MaxQuestions)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "interview.toml")
	content := `
endpoint = "wss://interview.example.com/ws/interview"
audio_backend = "none"
end_on_disconnect = true
max_questions = 3
transcript_dir = "/tmp/transcripts"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("MAX_QUESTIONS", "7")
	t.Setenv("DEEPGRAM_API_KEY", "secret")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if config.Endpoint != "wss://interview.example.com/ws/interview" {
		t.Fatalf("expected endpoint from file, got %q", config.Endpoint)
	}
	if config.AudioBackend != AudioBackendNone || !config.EndOnDisconnect {
		t.Fatalf("expected file values, got %+v", config)
	}
	if config.MaxQuestions != 7 {
		t.Fatalf("expected environment to override file, got %d", config.MaxQuestions)
	}
	if config.DeepgramAPIKey != "secret" {
		t.Fatalf("expected api key from environment, got %q", config.DeepgramAPIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=gemini-test\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	config, err := Load("")
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if config.GeminiModel != "gemini-test" {
		t.Fatalf("expected model from .env, got %q", config.GeminiModel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{name: "endpoint scheme", key: "INTERVIEW_ENDPOINT", value: "http://localhost/ws/interview", expected: "endpoint"},
		{name: "audio backend", key: "AUDIO_BACKEND", value: "alsa", expected: "audio_backend"},
		{name: "ping interval", key: "PING_INTERVAL", value: "soon", expected: "PING_INTERVAL"},
		{name: "max questions", key: "MAX_QUESTIONS", value: "0", expected: "max_questions"},
		{name: "end on disconnect", key: "END_ON_DISCONNECT", value: "maybe", expected: "END_ON_DISCONNECT"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv(testCase.key, testCase.value)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), testCase.expected) {
				t.Fatalf("expected error mentioning %q, got %v", testCase.expected, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing config file to fail")
	}
}
