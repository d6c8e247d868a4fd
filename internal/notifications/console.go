package notifications

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
)

// Console renders events as status lines.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	// lastStatus suppresses repeated identical polling lines.
	lastStatus string
}

// NewConsole writes to w, colouring output when color is true.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{w: w, color: color}
}

// NewTerminalConsole writes to f and enables colour when f is a terminal.
func NewTerminalConsole(f *os.File) *Console {
	return NewConsole(f, IsTerminal(f))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) OnProgress(_ context.Context, p Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var line string
	switch p.Phase {
	case PhasePolling:
		status := strings.TrimSpace(p.Status)
		if status == "" {
			status = "processing"
		}
		if status == c.lastStatus {
			return nil
		}
		c.lastStatus = status
		line = fmt.Sprintf("%s: %s (job %s)", progressSubject(p), status, p.JobID)
	default:
		c.lastStatus = ""
		line = fmt.Sprintf("%s: %s", progressSubject(p), p.Phase)
		if p.Detail != "" {
			line += " " + p.Detail
		}
	}
	_, err := fmt.Fprintln(c.w, c.paint(ansiDim, line))
	return err
}

func (c *Console) OnSuccess(_ context.Context, artifactRef, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastStatus = ""
	_, err := fmt.Fprintf(c.w, "%s %s\n", c.paint(ansiGreen, "✓ "+label), artifactRef)
	return err
}

func (c *Console) OnError(_ context.Context, kind, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastStatus = ""
	_, err := fmt.Fprintln(c.w, c.paint(ansiRed, fmt.Sprintf("✗ %s: %s", kind, message)))
	return err
}

// progressSubject names what the progress is about; uploads carry no kind.
func progressSubject(p Progress) string {
	if p.Kind == "" {
		return "Upload"
	}
	return p.Kind.DisplayName()
}

func (c *Console) paint(code, text string) string {
	if !c.color {
		return text
	}
	return code + text + ansiReset
}
