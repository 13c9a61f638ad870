package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aops-ba/testenv/internal/log"
	"github.com/fatih/color"
)

// Mode selects where a command's output goes.
type Mode int

const (
	// ModeStream connects the process to the terminal and echoes the argv.
	ModeStream Mode = iota
	// ModeLog merges stdout and stderr and records every line as command output.
	ModeLog
	// ModeDiscard drains and drops all output.
	ModeDiscard
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeLog:
		return "log"
	case ModeDiscard:
		return "discard"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Cmd is a single external process invocation.
type Cmd struct {
	Args []string
	// Dir is the working directory, the current one when empty.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
	// NoCheck returns a non-zero exit code without an error.
	NoCheck bool
}

func (c Cmd) String() string {
	return strings.Join(c.Args, " ")
}

// Runner runs external processes and reports their exit code.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (int, error)
}

// Error is returned when a checked process exits non-zero or cannot start.
// Code is -1 when the process never started.
type Error struct {
	Args []string
	Code int
	Err  error
}

func (e *Error) Error() string {
	argv := strings.Join(e.Args, " ")
	if e.Code < 0 {
		return fmt.Sprintf("failed to start %q: %v", argv, e.Err)
	}
	return fmt.Sprintf("command %q exited with code %d", argv, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var _ Runner = (*Exec)(nil)

// Exec runs commands with os/exec.
type Exec struct {
	mode   Mode
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type Option func(*Exec)

// WithStdio overrides the terminal streams. Stream mode attaches the process
// to them; every mode writes its status lines to them.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Exec) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

func New(mode Mode, opts ...Option) *Exec {
	e := &Exec{
		mode:   mode,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exec) Mode() Mode {
	return e.mode
}

// Run starts the process, waits for it and applies the failure check.
func (e *Exec) Run(ctx context.Context, c Cmd) (int, error) {
	if len(c.Args) == 0 {
		return -1, &Error{Code: -1, Err: errors.New("no command provided")}
	}

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var sink io.WriteCloser
	switch e.mode {
	case ModeStream:
		e.announce(c.Args)
		cmd.Stdin = e.stdin
		cmd.Stdout = e.stdout
		cmd.Stderr = e.stderr
	default:
		// one writer for both streams keeps their lines in emission order
		sink = e.Writer(ctx, c.Args[0])
		cmd.Stdout = sink
		cmd.Stderr = sink
	}

	log.Debug(ctx, "running command", "argv", c.String(), "dir", c.Dir)

	err := cmd.Run()
	if sink != nil {
		_ = sink.Close()
	}

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.failed(c.Args)
			return -1, &Error{Args: c.Args, Code: -1, Err: err}
		}
		code = exitErr.ExitCode()
	}

	if code != 0 && !c.NoCheck {
		e.failed(c.Args)
		return code, &Error{Args: c.Args, Code: code}
	}

	e.finished(c.Args)
	return code, nil
}

// Track reports a process that fn runs on its own, such as terraform driven
// through a library, with the same status lines Run prints for args.
func (e *Exec) Track(args []string, fn func() error) error {
	if e.mode == ModeStream {
		e.announce(args)
	}
	if err := fn(); err != nil {
		e.failed(args)
		return err
	}
	e.finished(args)
	return nil
}

func (e *Exec) announce(args []string) {
	color.New(color.Faint).Fprintf(e.stdout, "$ %s\n", strings.Join(args, " "))
}

func (e *Exec) failed(args []string) {
	color.New(color.FgRed).Fprintf(e.stderr, "Command failed: %s\n", strings.Join(args, " "))
}

func (e *Exec) finished(args []string) {
	if e.mode == ModeStream {
		color.New(color.FgGreen).Fprintf(e.stdout, "Command finished: %s\n", strings.Join(args, " "))
	}
}

// Writer returns a sink that treats everything written to it as output of the
// named command, honoring the runner's mode. Close flushes a trailing partial
// line.
func (e *Exec) Writer(ctx context.Context, name string) io.WriteCloser {
	switch e.mode {
	case ModeStream:
		return nopCloser{e.stdout}
	case ModeLog:
		return &lineWriter{ctx: ctx, name: filepath.Base(name)}
	default:
		return nopCloser{io.Discard}
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
