package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-interview/core/capture"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"github.com/koscakluka/ema-interview/core/transcript"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const transcriptStoreTimeout = 10 * time.Second

// TranscriptSink archives the conversation when a session ends.
type TranscriptSink interface {
	Store(ctx context.Context, doc transcript.Document) error
}

// Session is one interview run, from connect to teardown. It owns the
// channel, the relay, the capture source, the speaker and the timer.
type Session struct {
	id  string
	log *conversation.Log
	now func() time.Time

	channelOpts   []channel.ClientOption
	captureDevice capture.Device
	recognizer    speechtotext.Recognizer
	synthesizer   texttospeech.Synthesizer
	audioOutput   AudioOutput
	sinks         []TranscriptSink

	endOnDisconnect bool
	handler         events.Handler
	callbacks       sessionCallbacks
	emit            eventEmitter

	channel *channel.Client
	relay   *Relay
	speaker *Speaker
	capture *capture.Source
	timer   *Timer

	started atomic.Bool
	ending  atomic.Bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	hookDone chan struct{}

	endErr  error
	summary Summary
	ended   chan struct{}
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:    uuid.NewString(),
		now:   time.Now,
		ended: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = conversation.NewLog()
	}
	s.emit = newCallbackEventEmitter(s.callbacks, s.handler)

	channelOpts := append(s.channelOpts,
		channel.WithMessageCallback(s.handleMessage),
		channel.WithStatusCallback(s.handleStatus),
	)
	s.channel = channel.NewClient(channelOpts...)
	s.relay = NewRelay(s.channel, s.log, WithRelayEventHandler(events.Handler(s.emit)))
	s.speaker = NewSpeaker(
		WithSpeakerSynthesizer(s.synthesizer),
		WithSpeakerOutput(s.audioOutput),
		WithSpeakerEventHandler(events.Handler(s.emit)),
		WithSpeakingCallback(func(speaking bool) { s.relay.SetSuppressed(speaking) }),
	)
	s.timer = NewTimer(
		WithTimerClock(s.now),
		WithTickCallback(func(elapsed time.Duration) { s.emit(events.NewSessionTick(elapsed)) }),
	)
	if s.recognizer != nil {
		s.capture = capture.NewSource(
			capture.WithDevice(s.captureDevice),
			capture.WithRecognizer(s.recognizer),
			capture.WithUtteranceCallback(s.handleCaptured),
			capture.WithLevelCallback(func(level float64) { s.emit(events.NewUserAudioLevel(level)) }),
		)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Log() *conversation.Log { return s.log }

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.ended }

// Start starts the timer, speech output and capture, then connects the
// channel. Capture failures are reported through events and do not fail
// Start. A connect failure is returned, but the session keeps running in a
// disconnected state until End unless it was built with WithEndOnDisconnect.
//
// Cancelling ctx ends the session.
func (s *Session) Start(ctx context.Context, endpoint string) error {
	if s.isEnded() {
		return ErrSessionEnded
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	// End takes s.mu after marking the session as ending, so anything started
	// here is either seen by its teardown or never started at all.
	if s.ending.Load() {
		s.mu.Unlock()
		cancel()
		return ErrSessionEnded
	}
	s.cancel = cancel
	s.hookDone = withContextCancelHook(ctx, func() { s.end(events.EndReasonContextDone) })
	s.timer.Start()
	s.speaker.Start(ctx)
	if s.capture != nil {
		go s.startCapture(ctx)
	}
	s.mu.Unlock()

	if err := s.channel.Connect(ctx, endpoint); err != nil {
		logger.Error("failed to connect interview channel", "endpoint", endpoint, "error", err)
		return fmt.Errorf("failed to connect: %w", err)
	}
	s.emit(events.NewSessionConnected(s.id))
	return nil
}

// Submit sends typed or captured text through the relay.
func (s *Session) Submit(text string) error {
	if s.isEnded() {
		return ErrSessionEnded
	}
	return s.relay.Submit(text)
}

// SetAssistantSpeaking sets the suppression flag from outside the session,
// for callers that play assistant speech themselves.
func (s *Session) SetAssistantSpeaking(speaking bool) {
	s.relay.SetSuppressed(speaking)
}

// Speaker exposes the speech output, mostly to cancel it early.
func (s *Session) Speaker() *Speaker { return s.speaker }

func (s *Session) State() State {
	state := State{
		ConnectionStatus:   s.channel.Status(),
		Elapsed:            s.timer.Elapsed(),
		SpeakingSuppressed: s.relay.Suppressed(),
		Ended:              s.isEnded(),
	}
	if s.capture != nil {
		state.CaptureActive = s.capture.IsActive()
	}
	return state
}

// Summary returns the summary of an ended session.
func (s *Session) Summary() (Summary, bool) {
	if !s.isEnded() {
		return Summary{}, false
	}
	return s.summary, true
}

// End stops capture, closes the channel, cancels speech output and stops the
// timer, then signals termination once. Repeated calls have no side effects.
// A call made while teardown is still running, including one from a session
// callback or event handler, returns nil without waiting; Done reports
// completion.
func (s *Session) End() error {
	return s.end(events.EndReasonRequested)
}

func (s *Session) end(reason events.EndReason) error {
	if !s.ending.CompareAndSwap(false, true) {
		// Teardown already ran or is running, possibly further up this stack
		// when End is called from a callback.
		select {
		case <-s.ended:
			return s.endErr
		default:
			return nil
		}
	}

	s.mu.Lock()
	cancel, hookDone := s.cancel, s.hookDone
	s.cancel, s.hookDone = nil, nil
	s.mu.Unlock()

	ctx, span := tracer.Start(context.Background(), "session.end")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.String("session.end_reason", string(reason)),
	)

	var errs []error
	if s.capture != nil {
		wasActive := s.capture.IsActive()
		if err := s.capture.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop capture: %w", err))
		}
		if wasActive {
			s.emit(events.NewUserCaptureStopped())
		}
	}
	if err := s.channel.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
	}
	s.speaker.Close()
	s.timer.Stop()
	if hookDone != nil {
		close(hookDone)
	}
	if cancel != nil {
		cancel()
	}

	s.endErr = errors.Join(errs...)
	if s.endErr != nil {
		span.RecordError(s.endErr)
		span.SetStatus(codes.Error, s.endErr.Error())
	}

	s.summary = Summary{
		SessionID:  s.id,
		Reason:     reason,
		Elapsed:    s.timer.Elapsed(),
		EndedAt:    s.now(),
		Utterances: s.log.Snapshot(),
		Err:        s.endErr,
	}
	s.storeTranscript(ctx, s.summary)
	close(s.ended)

	logger.Info("session ended", "session_id", s.id, "reason", reason, "elapsed", FormatElapsed(s.summary.Elapsed))
	s.emit(events.NewSessionEnded(s.id, reason, s.summary.Elapsed, len(s.summary.Utterances), s.endErr))
	if s.callbacks.onEnded != nil {
		s.callbacks.onEnded(s.summary)
	}
	return s.endErr
}

func (s *Session) isEnded() bool {
	select {
	case <-s.ended:
		return true
	default:
		return false
	}
}

func (s *Session) storeTranscript(ctx context.Context, summary Summary) {
	if len(s.sinks) == 0 {
		return
	}

	doc, err := transcript.FromUtterances(summary.SessionID, summary.Elapsed, summary.EndedAt, summary.Utterances)
	if err != nil {
		logger.Error("failed to build transcript", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, transcriptStoreTimeout)
	defer cancel()
	for _, sink := range s.sinks {
		if err := sink.Store(ctx, doc); err != nil {
			logger.Error("failed to store transcript", "session_id", summary.SessionID, "error", err)
		}
	}
}

func (s *Session) startCapture(ctx context.Context) {
	if err := s.capture.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrStoppedDuringStart) || s.ending.Load() {
			return
		}
		logger.Warn("speech capture unavailable, continuing with typed input", "error", err)
		s.emit(events.NewUserCaptureUnavailable(err))
		return
	}

	// The session may have ended while the device was being acquired.
	if s.ending.Load() {
		if err := s.capture.Stop(); err != nil {
			logger.Warn("failed to release capture after end", "error", err)
		}
		return
	}
	s.emit(events.NewUserCaptureStarted())
}

func (s *Session) handleCaptured(text string) {
	s.emit(events.NewUserUtteranceCaptured(text))
	if err := s.Submit(text); err != nil {
		switch {
		case errors.Is(err, ErrSuppressed), errors.Is(err, ErrEmptyUtterance):
			logger.Debug("captured utterance dropped", "error", err)
		default:
			logger.Warn("captured utterance not sent", "error", err)
		}
	}
}

func (s *Session) handleMessage(msg channel.Message) {
	utterance := s.log.Append(msg.Utterance())
	s.emit(events.NewChannelMessage(utterance))
	if msg.Role == conversation.RoleAssistant {
		s.speaker.Say(msg.Text)
	}
}

func (s *Session) handleStatus(status channel.Status, err error) {
	s.emit(events.NewChannelStatusChanged(status, err))
	if status != channel.StatusClosed || s.ending.Load() {
		return
	}

	logger.Warn("interview channel closed", "session_id", s.id)
	if s.endOnDisconnect {
		go s.end(events.EndReasonDisconnected)
	}
}
