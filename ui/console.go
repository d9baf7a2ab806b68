package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/drake/ferry/ui/style"
)

// Console writes script output and system messages to a terminal stream.
// It is safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles style.Styles
}

// NewConsole creates a console writing to out. Colors are used only when out
// is a terminal that supports them.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:    out,
		styles: style.DefaultStyles(lipgloss.NewRenderer(out)),
	}
}

// Print outputs a line of script output.
func (c *Console) Print(text string) {
	c.write(c.styles.Output.Render(text))
}

// PrintError outputs an error line.
func (c *Console) PrintError(text string) {
	c.write(c.styles.Error.Render(text))
}

// System outputs a prefixed host message.
func (c *Console) System(text string) {
	c.write(c.styles.Prefix.Render("[ferry]") + " " + c.styles.Muted.Render(text))
}

// Status reports a connection change.
func (c *Console) Status(connected bool, host string) {
	if connected {
		c.write(c.styles.Prefix.Render("[ferry]") + " " + c.styles.Connected.Render("connected to "+host))
		return
	}
	c.write(c.styles.Prefix.Render("[ferry]") + " " + c.styles.Disconnected.Render("disconnected from "+host))
}

func (c *Console) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
