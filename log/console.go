package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/cargoexec/format"
)

// Color palette.
var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	noteColor    = lipgloss.Color("#3B82F6") // Blue
)

// Console prints decoded cargo messages for a human, roughly as cargo
// itself would. Colors are used only when w is a terminal.
type Console struct {
	w io.Writer

	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	note    lipgloss.Style
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, noColor bool) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{w: w}
	if noColor {
		plain := r.NewStyle()
		c.muted, c.success, c.warning, c.failure, c.note = plain, plain, plain, plain, plain
		return c
	}
	c.muted = r.NewStyle().Foreground(mutedColor)
	c.success = r.NewStyle().Bold(true).Foreground(successColor)
	c.warning = r.NewStyle().Foreground(warningColor)
	c.failure = r.NewStyle().Bold(true).Foreground(errorColor)
	c.note = r.NewStyle().Foreground(noteColor)
	return c
}

// Observe prints msg.
func (c *Console) Observe(msg format.Message) {
	switch v := msg.(type) {
	case *format.BuildFinished:
		style := c.success
		if !v.Success {
			style = c.failure
		}
		c.println(style.Render(fmt.Sprintf("Build finished: success=%t", v.Success)))
	case *format.Artifact:
		state := "Compiled"
		if v.Fresh {
			state = "Fresh"
		}
		c.println(c.muted.Render(fmt.Sprintf("%8s %s (%s)", state, v.Target.Name, v.PackageID)))
	case *format.FromCompiler:
		c.println(c.styleFor(v.Message.Level).Render(strings.TrimRight(v.Message.Text(), "\n")))
	case *format.BuildScript:
		c.println(c.muted.Render(fmt.Sprintf("Ran script from %s", v.PackageID)))
	default:
		c.println(c.warning.Render(fmt.Sprintf("Unknown message: %s", msg.Reason())))
	}
}

func (c *Console) styleFor(level format.DiagnosticLevel) lipgloss.Style {
	switch level {
	case format.LevelICE, format.LevelError:
		return c.failure
	case format.LevelWarning:
		return c.warning
	case format.LevelNote, format.LevelHelp, format.LevelFailureNote:
		return c.note
	default:
		return c.warning
	}
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.w, s)
}
