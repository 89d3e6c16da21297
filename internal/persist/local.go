package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// ErrNotFound indicates a key has no stored value.
var ErrNotFound = errors.New("key not found")

// LocalStore is a keyed value store that overwrites on Put.
type LocalStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// SessionKey scopes key to one UI session. An empty session leaves key as is.
func SessionKey(session schema.SessionID, key string) string {
	if session == "" {
		return key
	}
	return string(session) + "." + key
}

// Backend names a LocalStore implementation.
type Backend string

const (
	// BackendSQLite stores values in a sqlite table.
	BackendSQLite Backend = "sqlite"
	// BackendFile stores one JSON file per key.
	BackendFile Backend = "file"
)

// Options configures OpenLocalStore.
type Options struct {
	Backend    Backend
	SQLitePath string
	FileDir    string
	Logger     pslog.Logger
}

// OpenLocalStore opens the configured backend. The caller closes stores that
// implement io.Closer.
func OpenLocalStore(ctx context.Context, opts Options) (LocalStore, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(string(opts.Backend)))) {
	case "", BackendSQLite:
		return OpenSQLiteStore(ctx, opts.SQLitePath, opts.Logger)
	case BackendFile:
		return NewFileStore(opts.FileDir, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
