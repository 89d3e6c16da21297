package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
)

// FileStore persists each key as a JSON file in a directory.
type FileStore struct {
	dir string
	log pslog.Logger
}

// NewFileStore constructs a file-backed store at dir.
func NewFileStore(dir string, logger pslog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("storage_dir", dir)
	}
	return &FileStore{dir: dir, log: logger}, nil
}

// Get reads the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.pathForKey(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("storage get miss", "key", key)
			}
			return nil, ErrNotFound
		}
		if s.log != nil {
			s.log.Warn("storage get failed", "key", key, "err", err)
		}
		return nil, err
	}
	return data, nil
}

// Put atomically replaces the value stored under key.
func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := writeFileAtomic(s.pathForKey(key), data); err != nil {
		if s.log != nil {
			s.log.Warn("storage put failed", "key", key, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("storage put ok", "key", key, "bytes", len(data))
	}
	return nil
}

func (s *FileStore) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return strings.Trim(b.String(), ".")
}
