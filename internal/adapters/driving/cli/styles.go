package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette used for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// styles holds the lipgloss styles for one output stream.
// When the stream is not a terminal every style renders plain text.
type styles struct {
	heading    lipgloss.Style
	muted      lipgloss.Style
	warning    lipgloss.Style
	disclaimer lipgloss.Style
}

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{heading: plain, muted: plain, warning: plain, disclaimer: plain}
	}
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		muted:   lipgloss.NewStyle().Foreground(colourMuted),
		warning: lipgloss.NewStyle().Foreground(colourError),
		disclaimer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colourWarning).
			Foreground(colourWarning).
			Padding(0, 1).
			Width(72),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
