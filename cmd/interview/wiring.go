package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	interview "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/audio/miniaudio"
	"github.com/koscakluka/ema-interview/core/audio/portaudio"
	"github.com/koscakluka/ema-interview/core/capture"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	deepgramstt "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"
	deepgramtts "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-interview/core/transcript"
	"github.com/koscakluka/ema-interview/internal/config"
)

const portaudioBufferSize = 1024

// stack is everything a session needs besides callbacks, plus the cleanup
// for the resources it opened.
type stack struct {
	options []interview.SessionOption
	closers []func() error
}

func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildStack wires devices, recognizers, synthesis and transcript sinks from
// the configuration. Missing devices degrade the session instead of failing
// it. recognizer, when set, replaces speech recognition.
func buildStack(ctx context.Context, cfg *config.Config, recognizer speechtotext.Recognizer) (*stack, error) {
	s := &stack{}
	s.options = append(s.options,
		interview.WithEndOnDisconnect(cfg.EndOnDisconnect),
		interview.WithChannelOptions(channel.WithPingInterval(cfg.PingInterval())),
	)

	var (
		device capture.Device
		output interview.AudioOutput
	)
	switch cfg.AudioBackend {
	case config.AudioBackendMiniaudio:
		client, err := miniaudio.NewClient()
		if err != nil {
			slog.Warn("audio device unavailable, continuing without audio", "error", err)
			break
		}
		s.closers = append(s.closers, client.Close)
		device, output = client, client
	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			slog.Warn("audio device unavailable, continuing without audio", "error", err)
			break
		}
		s.closers = append(s.closers, client.Close)
		device = client
	}

	switch {
	case recognizer != nil:
		s.options = append(s.options, interview.WithRecognizer(recognizer))
	case cfg.DeepgramAPIKey != "" && device != nil:
		s.options = append(s.options,
			interview.WithRecognizer(deepgramstt.NewTranscriptionClient(cfg.DeepgramAPIKey)),
			interview.WithCaptureDevice(device),
		)
	}

	if cfg.DeepgramAPIKey != "" && output != nil {
		voice, err := deepgramtts.ParseVoice(cfg.Voice)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to configure voice: %w", err)
		}
		synthesizer, err := deepgramtts.NewTextToSpeechClient(cfg.DeepgramAPIKey, deepgramtts.WithVoice(voice))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to create speech synthesizer: %w", err)
		}
		s.options = append(s.options, interview.WithSynthesizer(synthesizer), interview.WithAudioOutput(output))
	}

	if cfg.TranscriptDir != "" {
		s.options = append(s.options, interview.WithTranscriptSink(transcript.NewFileSink(cfg.TranscriptDir)))
	}
	if cfg.RedisURL != "" {
		client, err := transcript.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			slog.Warn("redis unavailable, transcripts will not be archived there", "error", err)
		} else {
			s.closers = append(s.closers, client.Close)
			s.options = append(s.options, interview.WithTranscriptSink(transcript.NewRedisSink(client)))
		}
	}

	return s, nil
}
