package cleanup

import (
	"context"
	"errors"
	"slices"
)

// Func releases one per-run resource (a log file, a tracer provider).
type Func func(ctx context.Context) error

// Stack runs registered cleanups in reverse registration order.
type Stack struct {
	funcs []Func
}

func (s *Stack) Push(f Func) {
	s.funcs = append(s.funcs, f)
}

// Run calls every registered cleanup, newest first, and returns the joined
// errors. The stack is empty afterwards so a second Run is a no-op.
func (s *Stack) Run(ctx context.Context) error {
	var errs error
	for _, f := range slices.Backward(s.funcs) {
		errs = errors.Join(errs, f(ctx))
	}
	s.funcs = nil
	return errs
}
