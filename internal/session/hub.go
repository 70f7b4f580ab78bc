package session

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// Hub fans session events out to subscribed clients. Subscribers receive
// on buffered channels; a subscriber that cannot keep up misses events
// rather than stalling the orchestrator loop.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan Event
	closing     bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan Event)}
}

func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new listener and returns its id and channel. The
// channel is closed on Unsubscribe or hub Close.
func (h *Hub) Subscribe() (string, chan Event) {
	id := randomID()
	ch := make(chan Event, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a listener.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish delivers an event to every subscriber, skipping any whose
// buffer is full.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			// Slow subscriber, drop rather than block the loop.
		}
	}
}

// Close shuts down all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
