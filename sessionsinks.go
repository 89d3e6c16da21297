package tabforge

import (
	"context"

	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
)

// sessionLocal writes a session's saves under keys only that session uses.
type sessionLocal struct {
	local   core.LocalSink
	session schema.SessionID
}

func (l sessionLocal) Put(ctx context.Context, key string, data []byte) error {
	return l.local.Put(ctx, persist.SessionKey(l.session, key), data)
}

// sessionDownloads writes a session's exports into its own directory.
type sessionDownloads struct {
	downloads Downloads
	session   schema.SessionID
}

func (d sessionDownloads) Write(ctx context.Context, name string, data []byte) error {
	return d.downloads.WriteSession(ctx, d.session, name, data)
}
