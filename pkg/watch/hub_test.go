package watch

import (
	"testing"
	"time"
)

func TestSubscribe_ReceivesNotify(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Cancel()

	h.Notify()

	select {
	case _, ok := <-sub.C:
		if !ok {
			t.Fatalf("channel closed before cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected wake-up after Notify")
	}
}

func TestNotify_Coalesces(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	defer sub.Cancel()

	// Many rapid writes must collapse into at most one pending wake-up.
	for range 10 {
		h.Notify()
	}

	<-sub.C
	select {
	case <-sub.C:
		t.Fatalf("expected a single coalesced wake-up")
	default:
	}
}

func TestCancel_ClosesChannelAndStopsDelivery(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()

	sub.Cancel()
	sub.Cancel() // second cancel is a no-op

	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	// Notify after cancel must not panic or deliver.
	h.Notify()
}

func TestClose_TerminatesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Close()

	if _, ok := <-a.C; ok {
		t.Fatalf("subscriber a still open after hub close")
	}
	if _, ok := <-b.C; ok {
		t.Fatalf("subscriber b still open after hub close")
	}

	// New subscriptions after close come back already closed.
	c := h.Subscribe()
	if _, ok := <-c.C; ok {
		t.Fatalf("post-close subscription must be closed")
	}
	c.Cancel()
}
