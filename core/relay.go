package interview

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/events"
)

// Sender is the outbound half of the channel.
type Sender interface {
	Send(text string) error
}

// Relay forwards user utterances to the channel and records a local echo.
// It owns the suppression flag; other components read it through
// Suppressed.
type Relay struct {
	sender Sender
	log    *conversation.Log
	emit   events.Handler

	// sendMu keeps at most one send in flight.
	sendMu     sync.Mutex
	suppressed atomic.Bool
}

type RelayOption func(*Relay)

func WithRelayEventHandler(handler events.Handler) RelayOption {
	return func(r *Relay) {
		if handler != nil {
			r.emit = handler
		}
	}
}

func NewRelay(sender Sender, log *conversation.Log, opts ...RelayOption) *Relay {
	r := &Relay{sender: sender, log: log, emit: events.NoopHandler}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit sends text verbatim and appends it to the log as a user utterance.
// Empty text and text submitted while suppressed are dropped and reported
// through the returned error; the log is untouched in both cases.
func (r *Relay) Submit(text string) error {
	if strings.TrimSpace(text) == "" {
		logger.Debug("dropping empty utterance")
		r.emit(events.NewRelayDropped(text, events.DropReasonEmpty, ErrEmptyUtterance))
		return ErrEmptyUtterance
	}

	r.sendMu.Lock()
	if r.suppressed.Load() {
		r.sendMu.Unlock()
		logger.Debug("dropping utterance while assistant is speaking")
		r.emit(events.NewRelayDropped(text, events.DropReasonSuppressed, ErrSuppressed))
		return ErrSuppressed
	}

	if err := r.sender.Send(text); err != nil {
		r.sendMu.Unlock()
		reason := events.DropReasonChannelError
		if errors.Is(err, channel.ErrChannelNotOpen) {
			reason = events.DropReasonChannelNotOpen
		}
		logger.Warn("dropping utterance, send failed", "error", err)
		r.emit(events.NewRelayDropped(text, reason, err))
		return err
	}
	utterance := r.log.Append(conversation.NewUserUtterance(text, conversation.OriginLocalEcho))
	r.sendMu.Unlock()

	r.emit(events.NewRelaySubmitted(utterance))
	return nil
}

// SetSuppressed updates the flag and reports whether it changed.
func (r *Relay) SetSuppressed(suppressed bool) bool {
	if r.suppressed.Swap(suppressed) == suppressed {
		return false
	}
	r.emit(events.NewSuppressionChanged(suppressed))
	return true
}

func (r *Relay) Suppressed() bool {
	return r.suppressed.Load()
}
