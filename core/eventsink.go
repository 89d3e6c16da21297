package core

import "pkt.systems/tabforge/schema"

// EventSink receives store events after each successful mutation.
type EventSink interface {
	OnStoreEvent(event schema.StoreEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event schema.StoreEvent)

// OnStoreEvent calls f(event).
func (f EventSinkFunc) OnStoreEvent(event schema.StoreEvent) {
	f(event)
}
