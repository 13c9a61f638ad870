package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gosimple/slug"
)

// RunLog is the per-run temporary file that accumulates the output of every
// command the run invokes, in invocation order.
type RunLog struct {
	Path string

	f  *os.File
	mu sync.Mutex
}

// NewRunLog creates the log file in the OS temp directory, named after the
// operation and the (slugified) instance prefix.
func NewRunLog(op, prefix string) (*RunLog, error) {
	pattern := fmt.Sprintf("%s-test-instance-%s-*.log", op, slug.Make(prefix))
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}
	return &RunLog{Path: f.Name(), f: f}, nil
}

// Handler returns a slog handler that only writes command output records.
func (r *RunLog) Handler() slog.Handler {
	return &runLogHandler{w: r.f, mu: &r.mu}
}

func (r *RunLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}

// runLogHandler writes the message of every record that carries OutputKey,
// verbatim and newline terminated. Everything else is dropped.
type runLogHandler struct {
	w  io.Writer
	mu *sync.Mutex
}

func (h *runLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *runLogHandler) Handle(_ context.Context, record slog.Record) error {
	found := false
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == OutputKey {
			found = true
			return false
		}
		return true
	})
	if !found {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, record.Message)
	return err
}

func (h *runLogHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *runLogHandler) WithGroup(_ string) slog.Handler {
	return h
}
