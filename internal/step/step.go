package step

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aops-ba/testenv/internal/o11y"
	"github.com/fatih/color"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

var dim = color.New(color.Faint)

// Result is the ledger entry of one finished step.
type Result struct {
	Name     string
	Duration time.Duration
	Summary  string
	Err      error
}

// Run carries the display settings shared by every step of a pipeline run and
// accumulates their results.
type Run struct {
	Console *Console
	// Debug bypasses the indicator entirely. Subprocess output is already
	// streamed to the terminal in that mode.
	Debug bool
	// Verbose prints the start message as a plain line instead of animating it.
	Verbose bool

	mu      sync.Mutex
	results []Result
}

func NewRun(console *Console, debug, verbose bool) *Run {
	return &Run{Console: console, Debug: debug, Verbose: verbose}
}

// Results returns the steps recorded so far, in completion order.
func (r *Run) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func (r *Run) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Spec describes how a step presents itself.
type Spec[T any] struct {
	// Name identifies the step in the ledger and in traces. Start is used
	// when empty.
	Name  string
	Start string
	// Done builds the completion message from the step's return value.
	Done func(T) string
}

func (s Spec[T]) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Start
}

// Do runs fn as a step. Outside debug mode a status indicator shows Start
// while fn runs and a dimmed "[elapsed] message" line is printed once it
// succeeds. Timing covers fn only.
func Do[T any](ctx context.Context, r *Run, s Spec[T], fn func(context.Context) (T, error)) (T, error) {
	ctx, span := o11y.Tracer().Start(ctx, s.name())
	defer span.End()
	span.SetAttributes(attribute.String(o11y.AttrStep, s.name()))

	var stop func()
	if !r.Debug {
		stop = r.indicate(s.Start)
	}

	start := time.Now()
	v, err := fn(ctx)
	elapsed := time.Since(start)

	if stop != nil {
		stop()
	}

	res := Result{Name: s.name(), Duration: elapsed, Err: err}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.record(res)
		return v, err
	}

	res.Summary = s.Start
	if s.Done != nil {
		res.Summary = s.Done(v)
	}
	r.record(res)

	if !r.Debug {
		dim.Fprintf(r.Console, "[%s] %s\n", FormatElapsed(elapsed), res.Summary)
	}
	return v, nil
}

// indicate displays msg and returns the function that removes it.
func (r *Run) indicate(msg string) func() {
	if r.Verbose || !r.Console.Interactive() {
		dim.Fprintf(r.Console, "%s\n", msg)
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			r.Console.setStatus(dim.Sprintf("%s %s", frames[i%len(frames)], msg))
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		r.Console.clearStatus()
	}
}

// FormatElapsed renders d as whole minutes and seconds, "2m05s", or just
// seconds, "42s", when under a minute.
func FormatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	m, s := total/60, total%60
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
