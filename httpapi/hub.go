package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/tabforge/internal/logx"
	"pkt.systems/tabforge/schema"
)

// StreamEvent is sent to websocket clients.
type StreamEvent struct {
	Seq       uint64             `json:"seq"`
	Type      string             `json:"type"`
	Event     *schema.StoreEvent `json:"event,omitempty"`
	State     *schema.UIState    `json:"state,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

const (
	streamEventStore = "event"
	streamEventState = "state"
)

// Hub broadcasts UI state per session.
type Hub struct {
	mu       sync.Mutex
	sessions map[schema.SessionID]*sessionHub
	depth    int
}

// NewHub constructs a hub whose subscribers buffer depth events.
func NewHub(depth int) *Hub {
	if depth <= 0 {
		depth = 32
	}
	return &Hub{
		sessions: make(map[schema.SessionID]*sessionHub),
		depth:    depth,
	}
}

// Subscribe registers a subscriber for a session.
func (h *Hub) Subscribe(sessionID schema.SessionID) (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[sessionID]
	if sh == nil {
		sh = &sessionHub{subs: make(map[chan StreamEvent]struct{})}
		h.sessions[sessionID] = sh
	}
	ch := make(chan StreamEvent, h.depth)
	sh.subs[ch] = struct{}{}
	log := logx.WithSession(context.Background(), sessionID)
	log.Info("hub subscribe", "subs", len(sh.subs))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(sh.subs, ch)
			close(ch)
			remaining := len(sh.subs)
			if remaining == 0 && h.sessions[sessionID] == sh {
				delete(h.sessions, sessionID)
			}
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub
}

// Subscribers returns the number of subscribers of a session.
func (h *Hub) Subscribers(sessionID schema.SessionID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sh := h.sessions[sessionID]; sh != nil {
		return len(sh.subs)
	}
	return 0
}

// PublishState sends the UI state of a session to its subscribers.
func (h *Hub) PublishState(sessionID schema.SessionID, state schema.UIState) {
	h.publish(sessionID, StreamEvent{Type: streamEventState, State: &state, Timestamp: time.Now()})
}

func (h *Hub) publish(sessionID schema.SessionID, event StreamEvent) {
	h.mu.Lock()
	sh := h.sessions[sessionID]
	if sh == nil {
		h.mu.Unlock()
		return
	}
	sh.seq++
	event.Seq = sh.seq
	dropped := 0
	for sub := range sh.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()
	if dropped > 0 {
		logx.WithSession(context.Background(), sessionID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

type sessionHub struct {
	seq  uint64
	subs map[chan StreamEvent]struct{}
}
