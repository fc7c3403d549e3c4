package events

import (
	"sync"
)

const defaultSubscriberBuffer = 32

// Filter selects the events a subscriber receives. A nil filter receives everything.
type Filter func(Event) bool

// Subscription is one realtime listener registered on a Hub.
type Subscription struct {
	id     uint64
	ch     chan Event
	filter Filter
}

// Events returns the delivery channel. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans realtime events out to local subscribers.
// Slow subscribers drop events instead of blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription), buffer: defaultSubscriberBuffer}
}

// Subscribe registers a listener.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan Event, h.buffer), filter: filter}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a listener and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
}

// Broadcast delivers event to every matching subscriber and returns how many received it.
func (h *Hub) Broadcast(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
