// Package notify fans swap lifecycle events out to connected users.
//
// Delivery is fire-and-forget: events are emitted after the owning database
// transaction commits, and a slow or absent subscriber never blocks or fails
// the swap operation that produced the event.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names.
const (
	EventSwapRequested = "swap.requested"
	EventSwapAccepted  = "swap.accepted"
	EventSwapRejected  = "swap.rejected"
	EventSwapCompleted = "swap.completed"
	EventSwapCancelled = "swap.cancelled"
)

// Event is one notification addressed to a single user.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"-"`
	SwapID    string    `json:"swap_id,omitempty"`
	ItemID    int64     `json:"item_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent builds an event addressed to userID.
func NewEvent(name string, userID int64, swapID string, itemID int64, note string) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		SwapID:    swapID,
		ItemID:    itemID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
}

// Dispatcher delivers events to whoever is listening. Implementations must
// not block.
type Dispatcher interface {
	Emit(e Event)
}

// Discard is a Dispatcher that drops every event. Useful in tests and tools
// that run the swap engine without connected clients.
type Discard struct{}

// Emit implements Dispatcher.
func (Discard) Emit(Event) {}

// subscriberBuffer is the per-subscriber channel capacity. Events beyond it
// are dropped rather than queued without bound.
const subscriberBuffer = 16

// Hub is an in-process Dispatcher that delivers events to per-user
// subscribers, typically SSE connections.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[chan Event]struct{})}
}

// Subscribe registers a listener for one user's events. The returned cancel
// function removes the subscription and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe(userID int64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit delivers an event to all of the addressed user's subscribers. Never
// blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Emit(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[e.UserID] {
		select {
		case ch <- e:
		default:
			slog.Warn("dropping event, subscriber buffer full",
				"event", e.Name, "user_id", e.UserID)
		}
	}
}
