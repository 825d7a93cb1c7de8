package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSnapshotPreservesAppendOrder(t *testing.T) {
	log := NewLog()
	for i := range 50 {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		log.Append(Utterance{Role: role, Text: fmt.Sprintf("utterance %d", i)})
	}

	snapshot := log.Snapshot()
	if len(snapshot) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(snapshot))
	}
	for i, u := range snapshot {
		if want := fmt.Sprintf("utterance %d", i); u.Text != want {
			t.Fatalf("expected entry %d to be %q, got %q", i, want, u.Text)
		}
		if u.Sequence != uint64(i+1) {
			t.Fatalf("expected sequence %d at index %d, got %d", i+1, i, u.Sequence)
		}
		if u.ID == "" {
			t.Fatalf("expected entry %d to have an id", i)
		}
	}
}

func TestSnapshotIsStableCopy(t *testing.T) {
	log := NewLog()
	log.Append(NewAssistantUtterance("hello"))

	snapshot := log.Snapshot()
	snapshot[0].Text = "mutated"
	log.Append(NewUserUtterance("hi", OriginLocalEcho))

	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot to keep its length, got %d", len(snapshot))
	}
	if got := log.Snapshot()[0].Text; got != "hello" {
		t.Fatalf("expected log entry to be unaffected by snapshot mutation, got %q", got)
	}
}

func TestSubscribeDeliversOnlyFutureAppends(t *testing.T) {
	log := NewLog()
	log.Append(NewAssistantUtterance("before"))

	var received []string
	unsubscribe := log.Subscribe(func(u Utterance) { received = append(received, u.Text) })

	log.Append(NewAssistantUtterance("after 1"))
	log.Append(NewUserUtterance("after 2", OriginLocalEcho))
	unsubscribe()
	unsubscribe()
	log.Append(NewAssistantUtterance("after unsubscribe"))

	if len(received) != 2 || received[0] != "after 1" || received[1] != "after 2" {
		t.Fatalf("expected [after 1 after 2], got %v", received)
	}
}

func TestConcurrentAppendsKeepSubscriberAndSnapshotOrderInSync(t *testing.T) {
	log := NewLog()

	var mu sync.Mutex
	var delivered []uint64
	log.Subscribe(func(u Utterance) {
		mu.Lock()
		delivered = append(delivered, u.Sequence)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 25 {
				log.Append(NewUserUtterance(fmt.Sprintf("%d-%d", i, j), OriginLocalEcho))
				_ = log.Snapshot()
			}
		}()
	}
	wg.Wait()

	snapshot := log.Snapshot()
	if len(snapshot) != 200 || len(delivered) != 200 {
		t.Fatalf("expected 200 entries and deliveries, got %d and %d", len(snapshot), len(delivered))
	}
	for i := range snapshot {
		if snapshot[i].Sequence != delivered[i] {
			t.Fatalf("expected delivery order to match snapshot at %d: %d != %d", i, delivered[i], snapshot[i].Sequence)
		}
	}
}

func TestAppendUsesConfiguredClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	log := NewLog(WithClock(func() time.Time { return fixed }))

	u := log.Append(NewAssistantUtterance("hello"))
	if !u.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, u.Timestamp)
	}

	last, ok := log.Last()
	if !ok || last.ID != u.ID {
		t.Fatalf("expected last entry to be the appended utterance, got %+v (ok=%v)", last, ok)
	}
}
