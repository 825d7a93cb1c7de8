package interview

import (
	"fmt"
	"sync"
	"time"
)

// Timer counts whole seconds since Start. It stops counting at Stop and
// keeps reporting the frozen value afterwards.
type Timer struct {
	now      func() time.Time
	interval time.Duration
	onTick   func(elapsed time.Duration)

	mu        sync.Mutex
	startedAt time.Time
	stoppedAt time.Time
	running   bool
	inTick    bool
	stop      chan struct{}
	done      chan struct{}
}

type TimerOption func(*Timer)

// WithTimerClock replaces the time source. Ticks still use a real ticker.
func WithTimerClock(now func() time.Time) TimerOption {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTickCallback is called on every tick while the timer runs.
func WithTickCallback(onTick func(elapsed time.Duration)) TimerOption {
	return func(t *Timer) { t.onTick = onTick }
}

func WithTickInterval(interval time.Duration) TimerOption {
	return func(t *Timer) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

func NewTimer(opts ...TimerOption) *Timer {
	t := &Timer{now: time.Now, interval: time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins counting. It is a no-op on a running or stopped timer.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || !t.startedAt.IsZero() {
		return
	}

	t.startedAt = t.now()
	t.running = true
	if t.onTick == nil {
		return
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.tick(t.stop, t.done)
}

func (t *Timer) tick(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if !t.running {
				t.mu.Unlock()
				return
			}
			t.inTick = true
			t.mu.Unlock()

			t.onTick(t.Elapsed())

			t.mu.Lock()
			t.inTick = false
			t.mu.Unlock()
		}
	}
}

// Stop freezes the counter and waits for the tick goroutine. No tick starts
// after Stop returns. When a tick callback is running, possibly the caller
// itself, Stop returns without waiting for it. Repeated calls are no-ops.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.stoppedAt = t.now()
	stop, done, inTick := t.stop, t.done, t.inTick
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	if !inTick {
		<-done
	}
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the whole seconds counted so far.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.startedAt.IsZero() {
		return 0
	}
	end := t.stoppedAt
	if t.running {
		end = t.now()
	}
	return end.Sub(t.startedAt).Truncate(time.Second)
}

func (t *Timer) Seconds() int {
	return int(t.Elapsed() / time.Second)
}

// FormatElapsed renders d as MM:SS. Minutes are not wrapped into hours.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
