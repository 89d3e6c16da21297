package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// Bus fans store events out to per-session subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan schema.StoreEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan schema.StoreEvent]struct{}),
		log:   logger,
		depth: 64,
	}
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan schema.StoreEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.StoreEvent, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan schema.StoreEvent]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("session", sessionID).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers returns the number of subscribers of a session.
func (b *Bus) Subscribers(sessionID schema.SessionID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// OnStoreEvent publishes a store event to the subscribers of its session.
func (b *Bus) OnStoreEvent(event schema.StoreEvent) {
	if b == nil {
		return
	}
	// Sends are non-blocking, so holding the lock keeps cancel from closing a
	// channel mid-send.
	b.mu.Lock()
	dropped := 0
	for sub := range b.subs[event.Session] {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("session", event.Session).Trace("eventbus dropped", "count", dropped)
	}
}
