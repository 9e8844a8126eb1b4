// Package logging duplicates a run's output into a timestamped log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
)

// File is the log file of one run.
type File struct {
	Path  string
	RunID string

	mu sync.Mutex
	f  *os.File
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("dockship-%s.log", t.Format("20060102-150405"))
}

// Open creates the log file in dir.
func Open(dir string, now time.Time) (*File, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &File{Path: path, RunID: uuid.NewString(), f: f}, nil
}

// Write strips terminal styling and appends to the file.
func (l *File) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.f, ansi.Strip(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Tee returns a writer that writes to w and to the log file.
func (l *File) Tee(w io.Writer) io.Writer {
	return io.MultiWriter(w, l)
}

// Logger returns a structured logger that writes to the file only.
func (l *File) Logger() *slog.Logger {
	h := slog.NewTextHandler(l, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h).With("run", l.RunID)
}

// Close closes the file.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
