package activite

import (
	"context"
	"sync"

	"github.com/assogest/assogest/internal/logging"
)

// Event is one message on a session's live feed.
type Event struct {
	Type     string      `json:"type"`
	Presence *SheetEntry `json:"presence,omitempty"`
}

// Subscription is one listener on a session feed. Drain C until it closes;
// call Close when done.
type Subscription struct {
	C         <-chan Event
	hub       *Hub
	sessionID int64
	ch        chan Event
	once      sync.Once
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.sessionID, s) })
}

// Hub fans presence events out to the staff dashboards watching a session.
// Slow listeners drop events instead of blocking sign-ins.
type Hub struct {
	mu     sync.Mutex
	rooms  map[int64]map[*Subscription]struct{}
	log    *logging.Logger
	closed bool
}

// NewHub constructs an empty hub.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewDefault("kiosk-hub")
	}
	return &Hub{rooms: make(map[int64]map[*Subscription]struct{}), log: log}
}

// Subscribe attaches a listener to a session feed. Returns nil after Stop.
func (h *Hub) Subscribe(sessionID int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	sub := &Subscription{hub: h, sessionID: sessionID, ch: make(chan Event, 16)}
	sub.C = sub.ch
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Subscription]struct{})
		h.rooms[sessionID] = room
	}
	room[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sessionID int64, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	if _, member := room[sub]; !member {
		return
	}
	delete(room, sub)
	close(sub.ch)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Broadcast delivers an event to every listener of a session.
func (h *Hub) Broadcast(sessionID int64, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[sessionID] {
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn().Int64("session_id", sessionID).Msg("slow feed listener, event dropped")
		}
	}
}

// Listeners reports how many listeners a session currently has.
func (h *Hub) Listeners(sessionID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[sessionID])
}

// Name implements the lifecycle service interface.
func (h *Hub) Name() string { return "kiosk-hub" }

// Start implements the lifecycle service interface.
func (h *Hub) Start(context.Context) error { return nil }

// Stop closes every subscription and refuses new ones.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for sessionID, room := range h.rooms {
		for sub := range room {
			close(sub.ch)
		}
		delete(h.rooms, sessionID)
	}
	return nil
}
