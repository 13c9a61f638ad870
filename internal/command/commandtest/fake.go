// Package commandtest provides a recording command.Runner for tests.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/aops-ba/testenv/internal/command"
)

var _ command.Runner = (*Fake)(nil)

// Fake records every command it is asked to run and never starts a process.
type Fake struct {
	mu   sync.Mutex
	cmds []command.Cmd

	// Hook, when set, is consulted for every command. Its results are
	// returned as-is, before the NoCheck rule is applied.
	Hook func(ctx context.Context, cmd command.Cmd) (int, error)
}

func (f *Fake) Run(ctx context.Context, cmd command.Cmd) (int, error) {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.mu.Unlock()

	if f.Hook == nil {
		return 0, nil
	}
	code, err := f.Hook(ctx, cmd)
	if err == nil && code != 0 && !cmd.NoCheck {
		err = &command.Error{Args: cmd.Args, Code: code}
	}
	return code, err
}

// Cmds returns the recorded commands in call order.
func (f *Fake) Cmds() []command.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command.Cmd(nil), f.cmds...)
}

// Argvs returns each recorded command joined with spaces.
func (f *Fake) Argvs() []string {
	var out []string
	for _, c := range f.Cmds() {
		out = append(out, strings.Join(c.Args, " "))
	}
	return out
}

// Has reports whether any recorded command starts with the given args.
func (f *Fake) Has(prefix ...string) bool {
	for _, c := range f.Cmds() {
		if len(c.Args) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if c.Args[i] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
