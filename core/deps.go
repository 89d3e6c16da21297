package core

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// LocalSink is the keyed local storage a save writes to.
type LocalSink interface {
	Put(ctx context.Context, key string, data []byte) error
}

// DownloadSink receives the downloadable export of a save.
type DownloadSink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// StoreDeps captures optional dependencies for a store.
type StoreDeps struct {
	Session     schema.SessionID
	Local       LocalSink
	Download    DownloadSink
	EventSink   EventSink
	Diagnostics func(Diagnostic)
	Clock       func() time.Time
	Logger      pslog.Logger
}
