package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sandevgo/chainbot/internal/core"
)

var (
	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Italic(true)
	toolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

var _ core.EventSink = (*Console)(nil)

// Console renders engine events to the terminal.
type Console struct {
	out io.Writer
}

func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

func (c *Console) ToolStarted(name string) {
	fmt.Fprintf(c.out, "\n%s %s\n", toolStyle.Render("Tool:"), name)
}

func (c *Console) ToolFinished(name string, d time.Duration, ok bool) {
	if ok {
		fmt.Fprintf(c.out, "%s %s (%.1fs)\n", okStyle.Render("Done:"), name, d.Seconds())
		return
	}
	fmt.Fprintf(c.out, "%s %s (%.1fs)\n", errStyle.Render("Failed:"), name, d.Seconds())
}

func (c *Console) ThinkingStarted() {
	fmt.Fprintf(c.out, "\n%s ", thinkingStyle.Render("Thinking:"))
}

func (c *Console) ThinkingDelta(text string) {
	fmt.Fprint(c.out, thinkingStyle.Render(text))
}

func (c *Console) ThinkingFinished() {
	fmt.Fprintln(c.out)
}

func (c *Console) TextDelta(text string) {
	fmt.Fprint(c.out, text)
}

func (c *Console) Panel(title, body string) {
	fmt.Fprintf(c.out, "\n%s\n%s\n", TitleStyle.Render(title), panelStyle.Render(body))
}

func (c *Console) Info(msg string) {
	fmt.Fprintln(c.out, DescStyle.Render(msg))
}

func (c *Console) Error(title string, err error) {
	fmt.Fprintf(c.out, "\n%s %v\n", errStyle.Render(title+":"), err)
}
