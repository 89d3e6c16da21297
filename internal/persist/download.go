package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// DownloadDir writes exported snapshots into a directory.
type DownloadDir struct {
	dir string
	log pslog.Logger
}

// NewDownloadDir constructs an export sink rooted at dir.
func NewDownloadDir(dir string, logger pslog.Logger) (*DownloadDir, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &DownloadDir{dir: dir, log: logger}, nil
}

// Dir returns the export directory.
func (d *DownloadDir) Dir() string {
	return d.dir
}

// Write stores data as name, replacing a previous export of the same name.
func (d *DownloadDir) Write(_ context.Context, name string, data []byte) error {
	path, err := d.path(name)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		if d.log != nil {
			d.log.Warn("export write failed", "file", name, "err", err)
		}
		return err
	}
	if d.log != nil {
		d.log.Info("export written", "file", path)
	}
	return nil
}

// Open returns a reader for a previous export.
func (d *DownloadDir) Open(name string) (io.ReadSeekCloser, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Session returns the export directory owned by session. The directory is
// created on the first write.
func (d *DownloadDir) Session(session schema.SessionID) (*DownloadDir, error) {
	dir, err := d.path(string(session))
	if err != nil {
		return nil, fmt.Errorf("invalid session %q", session)
	}
	logger := d.log
	if logger != nil {
		logger = logger.With("session", session)
	}
	return &DownloadDir{dir: dir, log: logger}, nil
}

// WriteSession stores data as name in the export directory of session.
func (d *DownloadDir) WriteSession(ctx context.Context, session schema.SessionID, name string, data []byte) error {
	dir, err := d.Session(session)
	if err != nil {
		return err
	}
	return dir.Write(ctx, name, data)
}

// OpenSession returns a reader for an export written by session.
func (d *DownloadDir) OpenSession(session schema.SessionID, name string) (io.ReadSeekCloser, error) {
	dir, err := d.Session(session)
	if err != nil {
		return nil, err
	}
	return dir.Open(name)
}

func (d *DownloadDir) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	return filepath.Join(d.dir, name), nil
}
