package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/pslog"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps keyed values in the local_storage table of a sqlite file.
type SQLiteStore struct {
	db  *sql.DB
	log pslog.Logger
	now func() time.Time
}

// OpenSQLiteStore opens (and migrates) the sqlite file at path.
func OpenSQLiteStore(ctx context.Context, path string, logger pslog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	if logger != nil {
		logger = logger.With("sqlite_path", path)
		logger.Debug("sqlite storage open")
	}
	return &SQLiteStore{db: db, log: logger, now: time.Now}, nil
}

// Put upserts the value stored under key.
func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO local_storage (key, value, updated_at_unixms)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unixms = excluded.updated_at_unixms`,
		key, data, s.now().UnixMilli())
	if err != nil {
		if s.log != nil {
			s.log.Warn("storage put failed", "key", key, "err", err)
		}
		return fmt.Errorf("sqlite put %q: %w", key, err)
	}
	if s.log != nil {
		s.log.Trace("storage put ok", "key", key, "bytes", len(data))
	}
	return nil
}

// Get reads the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return data, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
