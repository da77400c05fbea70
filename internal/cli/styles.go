package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/lollopanta/Projex-sub000/internal/engine"
)

// colors is the palette for command output.
var colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
	Info:    lipgloss.Color("#74B9FF"), // Light blue
}

// styles holds the lipgloss styles used by report commands.
// They are bound to the output writer, so redirected output carries no escape codes.
type styles struct {
	Header  lipgloss.Style
	ID      lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Header:  r.NewStyle().Bold(true).Foreground(colors.Primary),
		ID:      r.NewStyle().Foreground(colors.Info),
		Muted:   r.NewStyle().Foreground(colors.Muted),
		Error:   r.NewStyle().Bold(true).Foreground(colors.Error),
		Success: r.NewStyle().Foreground(colors.Success),
		Warning: r.NewStyle().Foreground(colors.Warning),
		Info:    r.NewStyle().Foreground(colors.Info),
	}
}

// score renders a priority score, colored by band.
func (s styles) score(n int) string {
	text := fmt.Sprintf("%3d", n)
	switch {
	case n >= 70:
		return s.Error.Render(text)
	case n >= 55:
		return s.Warning.Render(text)
	case n < 45:
		return s.Muted.Render(text)
	default:
		return text
	}
}

// state renders the derived state of a task.
func (s styles) state(done, blocked bool) string {
	switch {
	case done:
		return s.Success.Render("done")
	case blocked:
		return s.Error.Render("blocked")
	default:
		return s.Info.Render("ready")
	}
}

// workloadStatus renders a workload classification.
func (s styles) workloadStatus(status engine.WorkloadStatus) string {
	switch status {
	case engine.StatusOverload:
		return s.Error.Render(string(status))
	case engine.StatusWarning:
		return s.Warning.Render(string(status))
	case engine.StatusUnderutilized:
		return s.Muted.Render(string(status))
	default:
		return s.Success.Render(string(status))
	}
}
