package app

import (
	"sync"

	"github.com/google/uuid"
)

// EventKind names an outbound broadcast event.
type EventKind string

const (
	EventRoundOpened  EventKind = "round.opened"
	EventRoundClosed  EventKind = "round.closed"
	EventLotteryDrawn EventKind = "lottery.drawn"
	EventLeaderboard  EventKind = "leaderboard"
)

// Event is one outbound message. Delivery is at-least-once; Key is an
// idempotency key so subscribers can drop duplicates.
type Event struct {
	Kind    EventKind `json:"kind"`
	Key     string    `json:"key"`
	Payload any       `json:"payload"`
}

// NewEvent builds an event with a fresh idempotency key.
func NewEvent(kind EventKind, payload any) Event {
	return Event{Kind: kind, Key: uuid.NewString(), Payload: payload}
}

// Hub fans events out to subscribers. The engine does not know the transport;
// websocket, SSE or polling adapters all consume the same channels.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber. Slow consumers lose their
// oldest queued event rather than blocking the broadcast.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
