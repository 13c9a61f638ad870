package log

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
)

// NewConsoleHandler returns the human facing handler. charmbracelet levels
// share slog's numeric values so the level converts directly.
func NewConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// WithHandlers installs a logger on ctx that fans every record out to the
// console handler and any additional handlers (typically a RunLog).
func WithHandlers(ctx context.Context, console slog.Handler, others ...slog.Handler) context.Context {
	handler := console
	if len(others) > 0 {
		handler = slogmulti.Fanout(append([]slog.Handler{console}, others...)...)
	}
	return clog.WithLogger(ctx, clog.New(handler))
}
