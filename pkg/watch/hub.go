package watch

import (
	"sync"
)

// Hub fans out change notifications to live-view subscribers.
//
// Producers call Notify after every committed store write. Each subscriber
// owns a buffered wake-up channel of size one, so rapid successive writes
// coalesce into a single pending wake-up: a consumer must treat each wake-up
// as "re-read the latest state", never as a delta. Subscriptions detach with
// immediate effect via Cancel, which also closes the channel.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan struct{}
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]chan struct{}),
	}
}

// Subscription is a live handle onto the hub. C fires (coalesced) whenever
// the watched data may have changed. After Cancel, C is closed.
type Subscription struct {
	C <-chan struct{}

	hub  *Hub
	id   uint64
	once sync.Once
}

// Subscribe registers a new listener. The returned subscription must be
// cancelled when the consumer detaches, otherwise the hub leaks the channel.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	if h.closed {
		close(ch)
		return &Subscription{C: ch, hub: h}
	}

	h.nextID++
	id := h.nextID
	h.subs[id] = ch

	return &Subscription{C: ch, hub: h, id: id}
}

// Notify wakes every subscriber. Non-blocking: a subscriber with a pending
// wake-up does not get a second one.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close cancels every subscription. Further Subscribe calls return an
// already-closed subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// Cancel detaches the subscription and closes C. Safe to call twice.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.id == 0 {
			return // subscription created after hub close
		}
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()

		if ch, ok := s.hub.subs[s.id]; ok {
			close(ch)
			delete(s.hub.subs, s.id)
		}
	})
}
