package tabforge

import (
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnStoreEvent(event schema.StoreEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnStoreEvent(event)
	}
}

func fanout(sinks ...core.EventSink) core.EventSink {
	kept := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return eventFanout{sinks: kept}
}
