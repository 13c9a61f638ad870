package step

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

const clearLine = "\r\033[K"

// Console serializes terminal writes. While a status line is displayed, every
// write clears it first and redraws it afterwards so other output never lands
// in the middle of it.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	status string
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != "" {
		io.WriteString(c.w, clearLine)
	}
	n, err := c.w.Write(p)
	if c.status != "" {
		io.WriteString(c.w, c.status)
	}
	return n, err
}

func (c *Console) setStatus(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	io.WriteString(c.w, clearLine+s)
	c.status = s
}

func (c *Console) clearStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != "" {
		io.WriteString(c.w, clearLine)
		c.status = ""
	}
}

// Interactive reports whether the console is attached to a terminal.
func (c *Console) Interactive() bool {
	f, ok := c.w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
