package conversation

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Listener func(Utterance)

// Log is an ordered, append-only record of exchanged utterances.
//
// Appends are delivered to subscribers in append order. Listeners run on the
// appending goroutine while the log holds its delivery lock, so a listener
// must not call Append synchronously.
type Log struct {
	// deliverMu serializes append + fan-out so subscribers observe appends in
	// the same order the snapshot does.
	deliverMu sync.Mutex

	mu        sync.RWMutex
	entries   []Utterance
	nextSeq   uint64
	listeners []subscription
	nextID    uint64

	now func() time.Time
}

type LogOption func(*Log)

// WithClock replaces the timestamp source used for appended utterances.
func WithClock(now func() time.Time) LogOption {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLog(opts ...LogOption) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stamps the utterance with the next sequence number (and an ID and
// timestamp when missing), stores it and notifies subscribers. It never fails.
func (l *Log) Append(u Utterance) Utterance {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	l.nextSeq++
	u.Sequence = l.nextSeq
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = l.now()
	}
	l.entries = append(l.entries, u)
	listeners := l.listeners
	l.mu.Unlock()

	for _, sub := range listeners {
		sub.listener(u)
	}

	return u
}

// Subscribe registers a listener for future appends only. The returned
// function removes the listener and is safe to call more than once.
func (l *Log) Subscribe(listener Listener) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	// copy on write so Append can iterate without holding mu
	l.listeners = append(slices.Clip(l.listeners), subscription{id: id, listener: listener})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.listeners = slices.DeleteFunc(slices.Clone(l.listeners), func(s subscription) bool { return s.id == id })
			l.mu.Unlock()
		})
	}
}

// Snapshot returns a stable copy of all entries in append order.
func (l *Log) Snapshot() []Utterance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]Utterance, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the most recent utterance, if any.
func (l *Log) Last() (Utterance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Utterance{}, false
	}
	return l.entries[len(l.entries)-1], true
}

type subscription struct {
	id       uint64
	listener Listener
}
