package sse

import (
	"log/slog"
	"sync"
)

// Event is one server-sent event addressed to a channel.
type Event struct {
	UserID string
	Event  string
	Data   interface{}
}

// Hub fans events out to the subscribers of a channel. A channel is usually
// an employee ID; admin dashboards share a single named channel.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
}

// NewHub creates a hub whose subscriber channels buffer 10 events.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  10,
	}
}

// Subscribe registers a subscriber on channel and returns its event stream
// and the function that unregisters it.
func (h *Hub) Subscribe(channel string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan Event]struct{})
	}
	h.subscribers[channel][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[channel], ch)
			close(ch)
			if len(h.subscribers[channel]) == 0 {
				delete(h.subscribers, channel)
			}
		})
	}

	return ch, cleanup
}

// Publish delivers event to every subscriber of channel without blocking and
// returns how many received it. Slow subscribers miss the event.
func (h *Hub) Publish(channel string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[channel] {
		select {
		case ch <- event:
			delivered++
		default:
			slog.Warn("SSE subscriber buffer full, dropping event", "channel", channel, "event", event.Event)
		}
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers on channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[channel])
}
