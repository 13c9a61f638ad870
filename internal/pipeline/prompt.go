package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator between and inside stages.
type Prompter interface {
	// Continue blocks until the operator is ready for the next stage.
	Continue(ctx context.Context) error
	// Confirm asks a yes/no question. Anything but yes is no.
	Confirm(ctx context.Context, question string) (bool, error)
}

var _ Prompter = (*LinePrompter)(nil)

// ErrNoInput is returned when the input closes while a prompt is waiting.
var ErrNoInput = errors.New("input closed while waiting for an answer")

// LinePrompter reads one line per prompt. A read abandoned by a cancelled
// prompt stays pending and answers the next one, so only one read is ever in
// flight on the input.
type LinePrompter struct {
	in      *bufio.Reader
	out     io.Writer
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

func NewPrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Continue(ctx context.Context) error {
	_, err := p.ask(ctx, "Press Enter to continue...")
	return err
}

func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ask(ctx, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (p *LinePrompter) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s ", prompt)

	if p.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- readResult{line, err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		if r.err != nil && (r.line == "" || !errors.Is(r.err, io.EOF)) {
			fmt.Fprintln(p.out)
			if errors.Is(r.err, io.EOF) {
				return "", ErrNoInput
			}
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}
