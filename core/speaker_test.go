package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

type stubSynthesizer struct {
	mu     sync.Mutex
	spoken []string
	hold   chan struct{}
	gens   []*stubGenerator
}

func (s *stubSynthesizer) NewSpeechGenerator(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	gen := &stubGenerator{owner: s, options: texttospeech.NewOptions(opts...), cancelled: make(chan struct{})}
	s.mu.Lock()
	s.gens = append(s.gens, gen)
	s.mu.Unlock()
	return gen, nil
}

func (s *stubSynthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type stubGenerator struct {
	owner     *stubSynthesizer
	options   texttospeech.TextToSpeechOptions
	text      string
	cancelled chan struct{}
	once      sync.Once
}

func (g *stubGenerator) SendText(text string) error {
	g.text += text
	return nil
}

func (g *stubGenerator) Mark() error { return nil }

func (g *stubGenerator) EndOfText() error {
	go func() {
		if g.owner.hold != nil {
			select {
			case <-g.owner.hold:
			case <-g.cancelled:
				g.options.ErrorCallback(errors.New("cancelled"))
				return
			}
		}
		g.options.SpeechAudioCallback([]byte{1, 2, 3, 4})
		g.owner.mu.Lock()
		g.owner.spoken = append(g.owner.spoken, g.text)
		g.owner.mu.Unlock()
		g.options.SpeechEndedCallback()
	}()
	return nil
}

func (g *stubGenerator) Cancel() error {
	g.once.Do(func() { close(g.cancelled) })
	return nil
}

func (g *stubGenerator) Close() error { return nil }

type stubOutput struct {
	sent    atomic.Int32
	cleared atomic.Int32
}

func (o *stubOutput) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }
func (o *stubOutput) SendAudio([]byte) error           { o.sent.Add(1); return nil }
func (o *stubOutput) ClearBuffer()                      { o.cleared.Add(1) }
func (o *stubOutput) AwaitMark() error                  { return nil }

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Handle(event events.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *eventRecorder) Kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) Count(kind events.Kind) int {
	count := 0
	for _, k := range r.Kinds() {
		if k == kind {
			count++
		}
	}
	return count
}

func TestSpeakerSpeaksInOrderAndReportsSpeaking(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	output := &stubOutput{}
	recorder := &eventRecorder{}
	var speakingMu sync.Mutex
	var speaking []bool

	speaker := NewSpeaker(
		WithSpeakerSynthesizer(synthesizer),
		WithSpeakerOutput(output),
		WithSpeakerEventHandler(recorder.Handle),
		WithSpeakingCallback(func(value bool) {
			speakingMu.Lock()
			speaking = append(speaking, value)
			speakingMu.Unlock()
		}),
	)
	speaker.Start(context.Background())
	defer speaker.Close()

	speaker.Say("first")
	speaker.Say("second")

	waitUntil(t, func() bool {
		return len(synthesizer.Spoken()) == 2 && !speaker.Speaking()
	})

	if spoken := synthesizer.Spoken(); spoken[0] != "first" || spoken[1] != "second" {
		t.Fatalf("expected utterances in queue order, got %v", spoken)
	}
	if got := output.sent.Load(); got != 2 {
		t.Fatalf("expected audio for both utterances, got %d chunks", got)
	}
	if got := recorder.Count(events.KindAssistantSpeechEnded); got != 2 {
		t.Fatalf("expected 2 speech ended events, got %d", got)
	}

	speakingMu.Lock()
	defer speakingMu.Unlock()
	if len(speaking) < 2 || !speaking[0] || speaking[len(speaking)-1] {
		t.Fatalf("expected speaking to start true and end false, got %v", speaking)
	}
}

func TestSpeakerCancelStopsSpeechAndClearsOutput(t *testing.T) {
	synthesizer := &stubSynthesizer{hold: make(chan struct{})}
	output := &stubOutput{}
	recorder := &eventRecorder{}
	speaker := NewSpeaker(
		WithSpeakerSynthesizer(synthesizer),
		WithSpeakerOutput(output),
		WithSpeakerEventHandler(recorder.Handle),
	)
	speaker.Start(context.Background())
	defer speaker.Close()

	speaker.Say("a long question")
	speaker.Say("queued question")
	waitUntil(t, func() bool { return recorder.Count(events.KindAssistantSpeechStarted) == 1 })

	speaker.Cancel()

	if speaker.Speaking() {
		t.Fatalf("expected speaking to be cleared by cancel")
	}
	if got := output.cleared.Load(); got != 1 {
		t.Fatalf("expected output buffer to be cleared once, got %d", got)
	}
	if got := recorder.Count(events.KindAssistantSpeechCancelled); got != 1 {
		t.Fatalf("expected one cancelled event, got %d", got)
	}

	time.Sleep(30 * time.Millisecond)
	if spoken := synthesizer.Spoken(); len(spoken) != 0 {
		t.Fatalf("expected nothing to finish after cancel, got %v", spoken)
	}
	if got := recorder.Count(events.KindAssistantSpeechEnded); got != 0 {
		t.Fatalf("expected no ended events after cancel, got %d", got)
	}
}

func TestSpeakerWithoutSynthesizerIgnoresSay(t *testing.T) {
	var calls atomic.Int32
	speaker := NewSpeaker(WithSpeakingCallback(func(bool) { calls.Add(1) }))
	speaker.Start(context.Background())

	speaker.Say("hello")
	speaker.Close()
	speaker.Close()

	if speaker.Enabled() {
		t.Fatalf("expected speaker without synthesizer to be disabled")
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no speaking changes, got %d", got)
	}
}

func TestSpeakerIgnoresSayAfterClose(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	speaker := NewSpeaker(WithSpeakerSynthesizer(synthesizer))
	speaker.Start(context.Background())

	speaker.Close()
	speaker.Say("too late")

	select {
	case <-speaker.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected worker to exit after close")
	}
	if speaker.Speaking() {
		t.Fatalf("expected closed speaker not to report speaking")
	}
	if spoken := synthesizer.Spoken(); len(spoken) != 0 {
		t.Fatalf("expected nothing spoken after close, got %v", spoken)
	}
}

func waitUntil(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestSpeakerNeverReportsIdleWithQueuedSpeech(t *testing.T) {
	synthesizer := &stubSynthesizer{}
	var speaker *Speaker
	var violations, reports atomic.Int32
	speaker = NewSpeaker(
		WithSpeakerSynthesizer(synthesizer),
		WithSpeakerOutput(&stubOutput{}),
		WithSpeakingCallback(func(speaking bool) {
			reports.Add(1)
			if speaking {
				return
			}
			speaker.mu.Lock()
			if len(speaker.queue) > 0 || speaker.taken {
				violations.Add(1)
			}
			speaker.mu.Unlock()
		}),
	)
	speaker.Start(context.Background())
	defer speaker.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				speaker.Say(fmt.Sprintf("line %d-%d", i, j))
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	waitUntil(t, func() bool { return len(synthesizer.Spoken()) == 200 })
	waitUntil(t, func() bool { return !speaker.Speaking() })

	if got := violations.Load(); got != 0 {
		t.Fatalf("expected no idle report with queued speech, got %d of %d reports", got, reports.Load())
	}
}

func TestSpeakerSayAfterCancelKeepsSpeaking(t *testing.T) {
	synthesizer := &stubSynthesizer{hold: make(chan struct{})}
	speaker := NewSpeaker(WithSpeakerSynthesizer(synthesizer), WithSpeakerOutput(&stubOutput{}))
	speaker.Start(context.Background())
	defer speaker.Close()

	speaker.Say("first")
	speaker.Cancel()
	speaker.Say("second")
	if !speaker.Speaking() {
		t.Fatalf("expected speaking after Say")
	}

	close(synthesizer.hold)
	waitUntil(t, func() bool {
		spoken := synthesizer.Spoken()
		return len(spoken) == 1 && spoken[0] == "second"
	})
	waitUntil(t, func() bool { return !speaker.Speaking() })
}
