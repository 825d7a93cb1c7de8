// Package lines is a recognizer over text input. Every non-empty line read
// from the source is a finalized utterance. It lets a session run on a
// keyboard or a scripted input where no microphone is available.
package lines

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/koscakluka/ema-interview/core/speechtotext"
)

type Recognizer struct {
	source io.Reader

	readOnce sync.Once
	lines    chan string
	eof      chan struct{}
	readErr  error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRecognizer(source io.Reader) *Recognizer {
	return &Recognizer{
		source: source,
		lines:  make(chan string),
		eof:    make(chan struct{}),
	}
}

// Transcribe starts delivering lines. The source is read by a single
// goroutine for the lifetime of the recognizer, so Transcribe may be called
// again after Stop.
func (r *Recognizer) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("line recognizer already running")
	}

	options := speechtotext.NewOptions(opts...)
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.readOnce.Do(func() { go r.read() })

	go r.deliver(ctx, options, r.done)
	return nil
}

func (r *Recognizer) read() {
	defer close(r.eof)
	scanner := bufio.NewScanner(r.source)
	for scanner.Scan() {
		r.lines <- scanner.Text()
	}
	r.readErr = scanner.Err()
}

func (r *Recognizer) deliver(ctx context.Context, options speechtotext.TranscriptionOptions, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.eof:
			if r.readErr != nil {
				options.ErrorCallback(r.readErr)
			}
			return
		case line := <-r.lines:
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			options.SpeechStartedCallback()
			options.TranscriptionCallback(text)
			options.SpeechEndedCallback()
		}
	}
}

func (r *Recognizer) SendAudio([]byte) error { return nil }

// RequiresAudio is false, a capture source runs this recognizer without a
// device.
func (r *Recognizer) RequiresAudio() bool { return false }

// Stop stops delivering utterances. Lines read afterwards wait for the next
// Transcribe.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
