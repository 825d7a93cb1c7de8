// Package capture turns a live input into discrete utterance events.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/capture"

var logger = otelslog.NewLogger(scopeName)

var (
	// ErrNoRecognizer is returned by Start when no recognizer is configured.
	ErrNoRecognizer = errors.New("no recognizer configured")
	// ErrStoppedDuringStart is returned when Stop ran while Start was still
	// acquiring resources. Whatever was acquired has been released.
	ErrStoppedDuringStart = errors.New("capture stopped during start")
)

// Device is an audio input with explicit capture control.
type Device interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// Source wraps an optional audio device and a recognizer. It emits each
// finalized utterance once and reports input levels while active.
type Source struct {
	device     Device
	recognizer speechtotext.Recognizer

	onUtterance func(text string)
	onLevel     func(level float64)

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc

	// generation changes on every Start and Stop; callbacks and acquisitions
	// from an older generation are discarded.
	generation atomic.Uint64
}

type SourceOption func(*Source)

func WithDevice(device Device) SourceOption {
	return func(s *Source) { s.device = device }
}

func WithRecognizer(recognizer speechtotext.Recognizer) SourceOption {
	return func(s *Source) { s.recognizer = recognizer }
}

func WithUtteranceCallback(callback func(text string)) SourceOption {
	return func(s *Source) {
		if callback != nil {
			s.onUtterance = callback
		}
	}
}

// WithLevelCallback receives normalized input levels. It is called from the
// device thread and must not block.
func WithLevelCallback(callback func(level float64)) SourceOption {
	return func(s *Source) {
		if callback != nil {
			s.onLevel = callback
		}
	}
}

func NewSource(opts ...SourceOption) *Source {
	s := &Source{
		onUtterance: func(string) {},
		onLevel:     func(float64) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start starts the recognizer and, when it needs audio, the device. Calling
// Start on an active source is a no-op. Acquisition failures are reported as
// audio.ErrDeviceUnavailable and leave the source stopped.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	if s.recognizer == nil {
		s.mu.Unlock()
		return ErrNoRecognizer
	}
	needsDevice := speechtotext.RequiresAudio(s.recognizer)
	if needsDevice && s.device == nil {
		s.mu.Unlock()
		return fmt.Errorf("no audio input configured: %w", audio.ErrDeviceUnavailable)
	}

	gen := s.generation.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	s.active = true
	s.cancel = cancel
	s.mu.Unlock()

	encoding := audio.GetDefaultEncodingInfo()
	if needsDevice {
		encoding = s.device.EncodingInfo()
	}

	if err := s.recognizer.Transcribe(runCtx,
		speechtotext.WithEncodingInfo(encoding),
		speechtotext.WithTranscriptionCallback(func(transcript string) { s.emitUtterance(gen, transcript) }),
		speechtotext.WithErrorCallback(func(err error) {
			if s.generation.Load() == gen {
				logger.Error("recognizer stopped", "error", err)
			}
		}),
	); err != nil {
		if s.generation.Load() != gen {
			return ErrStoppedDuringStart
		}
		s.abortStart(gen)
		return fmt.Errorf("failed to start recognizer: %w", errors.Join(audio.ErrDeviceUnavailable, err))
	}

	if needsDevice {
		if err := s.device.StartCapture(runCtx, func(chunk []byte) { s.forwardAudio(gen, encoding, chunk) }); err != nil {
			s.abortStart(gen)
			_ = s.recognizer.Stop()
			if !errors.Is(err, audio.ErrDeviceUnavailable) {
				err = errors.Join(audio.ErrDeviceUnavailable, err)
			}
			return fmt.Errorf("failed to start audio capture: %w", err)
		}
	}

	// Stop may have run while resources were being acquired.
	if s.generation.Load() != gen {
		s.release(needsDevice)
		return ErrStoppedDuringStart
	}

	logger.Info("capture started", "device", needsDevice)
	return nil
}

// Stop releases the device and the recognizer. Calling Stop on a stopped
// source is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.generation.Add(1)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	if err := s.release(s.device != nil && speechtotext.RequiresAudio(s.recognizer)); err != nil {
		return err
	}
	logger.Info("capture stopped")
	return nil
}

func (s *Source) release(withDevice bool) error {
	var errs []error
	if withDevice {
		if err := s.device.StopCapture(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audio capture: %w", err))
		}
	}
	if err := s.recognizer.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop recognizer: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Source) abortStart(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		return
	}
	s.active = false
	s.generation.Add(1)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Source) forwardAudio(gen uint64, encoding audio.EncodingInfo, chunk []byte) {
	if s.generation.Load() != gen {
		return
	}

	s.onLevel(audio.Level(chunk, encoding))
	if err := s.recognizer.SendAudio(chunk); err != nil {
		logger.Debug("failed to forward audio to recognizer", "error", err)
	}
}

func (s *Source) emitUtterance(gen uint64, transcript string) {
	if s.generation.Load() != gen {
		return
	}

	text := strings.TrimSpace(transcript)
	if text == "" {
		return
	}
	s.onUtterance(text)
}
