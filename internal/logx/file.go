package logx

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// Output returns the writer loggers should use: stderr alone, or stderr teed
// with a rotating file. The closer releases the file and is never nil.
func Output(stderr io.Writer, opts FileOptions) (io.Writer, io.Closer, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return stderr, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	return io.MultiWriter(stderr, file), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
