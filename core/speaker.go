package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

// AudioOutput plays synthesized speech.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	// ClearBuffer drops buffered audio and releases pending AwaitMark calls.
	ClearBuffer()
	// AwaitMark blocks until audio sent so far has been played.
	AwaitMark() error
}

// Speaker speaks assistant utterances one at a time, in the order they were
// queued. It reports whether speech is queued or playing through the
// speaking callback, which drives send suppression.
type Speaker struct {
	synthesizer texttospeech.Synthesizer
	output      AudioOutput
	emit        events.Handler
	onSpeaking  func(bool)

	mu        sync.Mutex
	queue     []string
	// taken is set while the worker holds an utterance popped from queue.
	taken     bool
	current   texttospeech.SpeechGenerator
	interrupt chan struct{}
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool

	// speakingMu orders speaking callbacks. It is taken before mu.
	speakingMu sync.Mutex
	speaking   bool
}

type SpeakerOption func(*Speaker)

func WithSpeakerSynthesizer(synthesizer texttospeech.Synthesizer) SpeakerOption {
	return func(s *Speaker) { s.synthesizer = synthesizer }
}

func WithSpeakerOutput(output AudioOutput) SpeakerOption {
	return func(s *Speaker) { s.output = output }
}

func WithSpeakerEventHandler(handler events.Handler) SpeakerOption {
	return func(s *Speaker) {
		if handler != nil {
			s.emit = handler
		}
	}
}

// WithSpeakingCallback is called whenever speech starts or stops being
// pending. It must not call back into the Speaker.
func WithSpeakingCallback(callback func(speaking bool)) SpeakerOption {
	return func(s *Speaker) {
		if callback != nil {
			s.onSpeaking = callback
		}
	}
}

func NewSpeaker(opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		emit:       events.NoopHandler,
		onSpeaking: func(bool) {},
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a synthesizer is configured. A disabled speaker
// ignores Say.
func (s *Speaker) Enabled() bool {
	return s.synthesizer != nil
}

// Start runs the playback worker until ctx is done or Close is called.
func (s *Speaker) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	s.mu.Lock()
	if s.closed || s.done != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := panicSafeNamedWorker("speaker", s.run)(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("speaker stopped", "error", err)
		}
	}()
}

// Say queues text for speech.
func (s *Speaker) Say(text string) {
	if !s.Enabled() || text == "" {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, text)
	s.mu.Unlock()

	s.syncSpeaking()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Speaker) Speaking() bool {
	s.speakingMu.Lock()
	defer s.speakingMu.Unlock()
	return s.speaking
}

// Cancel drops queued speech and stops the utterance being spoken.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	hadWork := len(s.queue) > 0 || s.current != nil
	s.queue = nil
	s.taken = false
	generator := s.current
	if s.interrupt != nil {
		close(s.interrupt)
		s.interrupt = nil
	}
	s.mu.Unlock()

	if generator != nil {
		if err := generator.Cancel(); err != nil {
			logger.Warn("failed to cancel speech generator", "error", err)
		}
	}
	if s.output != nil {
		s.output.ClearBuffer()
	}
	s.syncSpeaking()

	if hadWork {
		s.emit(events.NewAssistantSpeechCancelled())
	}
}

// Close cancels pending speech and stops the worker. Say is ignored
// afterwards. Close does not wait for the worker, so it is safe to call from
// a speech event handler; use Done to wait.
func (s *Speaker) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	s.Cancel()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when the worker has exited. It is nil before Start.
func (s *Speaker) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Speaker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}

		for {
			text, interrupt, ok := s.next()
			if !ok {
				break
			}
			if err := s.speak(ctx, text, interrupt); err != nil {
				logger.Error("failed to speak assistant utterance", "error", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// next pops the next utterance. The speaking flag follows, so it clears
// only once the queue is drained.
func (s *Speaker) next() (string, chan struct{}, bool) {
	defer s.syncSpeaking()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.taken = false
		return "", nil, false
	}
	text := s.queue[0]
	s.queue = s.queue[1:]
	s.taken = true
	s.interrupt = make(chan struct{})
	return text, s.interrupt, true
}

func (s *Speaker) speak(ctx context.Context, text string, interrupt chan struct{}) error {
	finished := make(chan error, 1)
	report := func(err error) {
		select {
		case finished <- err:
		default:
		}
	}

	opts := []texttospeech.TextToSpeechOption{
		texttospeech.WithSpeechEndedCallback(func() { report(nil) }),
		texttospeech.WithErrorCallback(report),
	}
	if s.output != nil {
		opts = append(opts,
			texttospeech.WithEncodingInfo(s.output.EncodingInfo()),
			texttospeech.WithSpeechAudioCallback(func(audio []byte) {
				if err := s.output.SendAudio(audio); err != nil {
					logger.Warn("failed to play speech audio", "error", err)
				}
			}),
		)
	}

	generator, err := s.synthesizer.NewSpeechGenerator(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create speech generator: %w", err)
	}
	defer generator.Close()

	s.mu.Lock()
	if s.interrupt != interrupt {
		s.mu.Unlock()
		return nil
	}
	s.current = generator
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.current == generator {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	s.emit(events.NewAssistantSpeechStarted(text))
	if err := generator.SendText(text); err != nil {
		return fmt.Errorf("failed to send text to speech generator: %w", err)
	}
	if err := generator.EndOfText(); err != nil {
		return fmt.Errorf("failed to end speech text: %w", err)
	}

	select {
	case <-interrupt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case err := <-finished:
		if err != nil {
			return fmt.Errorf("speech generation failed: %w", err)
		}
	}

	if s.output != nil {
		if err := s.output.AwaitMark(); err != nil {
			return fmt.Errorf("failed to await speech playback: %w", err)
		}
	}

	select {
	case <-interrupt:
		return nil
	default:
	}
	s.emit(events.NewAssistantSpeechEnded(text))
	return nil
}

// syncSpeaking reports the current queue state through the speaking
// callback. The state is read under speakingMu, so the last report always
// matches the last change.
func (s *Speaker) syncSpeaking() {
	s.speakingMu.Lock()
	defer s.speakingMu.Unlock()

	s.mu.Lock()
	speaking := len(s.queue) > 0 || s.taken
	s.mu.Unlock()

	if s.speaking == speaking {
		return
	}
	s.speaking = speaking
	s.onSpeaking(speaking)
}
