package command

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/aops-ba/testenv/internal/log"
)

// lineWriter splits written bytes into lines and records each one as command
// output on the context logger.
type lineWriter struct {
	ctx  context.Context
	name string

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *lineWriter) emit(line []byte) {
	log.Output(w.ctx, w.name, strings.TrimSuffix(string(line), "\r"))
}
