package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeActionStarted, "bumble", map[string]string{"action": "dock"})

	select {
	case ev := <-ch:
		if ev.Type != TypeActionStarted || ev.Robot != "bumble" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestSnapshotSinceReturnsOnlyNewer(t *testing.T) {
	h := NewHub(10)
	h.Publish(TypeActionStarted, "bumble", nil)
	h.Publish(TypeActionFinished, "bumble", nil)

	all := h.SnapshotSince(0)
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}

	newer := h.SnapshotSince(all[0].ID)
	if len(newer) != 1 || newer[0].Type != TypeActionFinished {
		t.Fatalf("expected only the newer event, got %+v", newer)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	h := NewHub(2)
	h.Publish(TypeActionStarted, "bumble", nil)
	h.Publish(TypeCommandAck, "bumble", nil)
	h.Publish(TypeActionFinished, "bumble", nil)

	snap := h.SnapshotSince(0)
	if len(snap) != 2 {
		t.Fatalf("expected ring capacity 2, got %d", len(snap))
	}
	if snap[0].Type != TypeCommandAck || snap[1].Type != TypeActionFinished {
		t.Fatalf("oldest event not evicted: %+v", snap)
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			h.Publish(TypePlanProgress, "bumble", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}
