// Package config loads settings for the interview client and the dev
// backend from a .env file, an optional TOML file and the environment, in
// that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
	AudioBackendNone      = "none"
)

type Config struct {
	// Client
	Endpoint            string `toml:"endpoint"`              // interview websocket, ws://host/ws/interview
	UploadURL           string `toml:"upload_url"`            // resume upload, http://host/upload_resume
	DeepgramAPIKey      string `toml:"deepgram_api_key"`      // enables speech recognition and synthesis
	AudioBackend        string `toml:"audio_backend"`         // miniaudio, portaudio or none
	Voice               string `toml:"voice"`                 // Deepgram aura voice
	TranscriptDir       string `toml:"transcript_dir"`        // file archive, disabled when empty
	RedisURL            string `toml:"redis_url"`             // redis archive, disabled when empty
	RedisPassword       string `toml:"redis_password"`
	EndOnDisconnect     bool   `toml:"end_on_disconnect"`     // end the session when the channel drops
	PingIntervalSeconds int    `toml:"ping_interval_seconds"` // channel keepalive, 0 disables
	LogFile             string `toml:"log_file"`              // plain slog output, disabled when empty

	// Backend
	ListenAddr   string `toml:"listen_addr"`
	MaxQuestions int    `toml:"max_questions"`
	GeminiAPIKey string `toml:"gemini_api_key"` // scripted questions when empty
	GeminiModel  string `toml:"gemini_model"`
}

func Default() *Config {
	return &Config{
		Endpoint:            "ws://localhost:8000/ws/interview",
		UploadURL:           "http://localhost:8000/upload_resume",
		AudioBackend:        AudioBackendMiniaudio,
		PingIntervalSeconds: 30,
		ListenAddr:          ":8000",
		MaxQuestions:        5,
		GeminiModel:         "gemini-2.5-flash",
	}
}

// PingInterval is the channel keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

// Load builds the configuration. A missing .env file is ignored; a missing
// TOML file is an error when path is not empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Endpoint, "INTERVIEW_ENDPOINT")
	setString(&c.UploadURL, "INTERVIEW_UPLOAD_URL")
	setString(&c.DeepgramAPIKey, "DEEPGRAM_API_KEY")
	setString(&c.AudioBackend, "AUDIO_BACKEND")
	setString(&c.Voice, "DEEPGRAM_VOICE")
	setString(&c.TranscriptDir, "TRANSCRIPT_DIR")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")

	var errs []error
	if value := os.Getenv("END_ON_DISCONNECT"); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid END_ON_DISCONNECT: %w", err))
		}
		c.EndOnDisconnect = b
	}
	if value := os.Getenv("PING_INTERVAL"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid PING_INTERVAL: %w", err))
		}
		c.PingIntervalSeconds = n
	}
	if value := os.Getenv("MAX_QUESTIONS"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid MAX_QUESTIONS: %w", err))
		}
		c.MaxQuestions = n
	}
	return errors.Join(errs...)
}

func setString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = strings.TrimSpace(value)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Endpoint, "ws://") && !strings.HasPrefix(c.Endpoint, "wss://") {
		errs = append(errs, fmt.Errorf("endpoint must be a ws:// or wss:// url, got %q", c.Endpoint))
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendNone:
	default:
		errs = append(errs, fmt.Errorf("audio_backend must be %q, %q or %q, got %q",
			AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendNone, c.AudioBackend))
	}
	if c.PingIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("ping_interval_seconds must not be negative"))
	}
	if c.MaxQuestions < 1 {
		errs = append(errs, fmt.Errorf("max_questions must be at least 1"))
	}
	return errors.Join(errs...)
}
