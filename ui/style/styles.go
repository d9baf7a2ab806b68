package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles for console output.
type Styles struct {
	// Script output
	Output lipgloss.Style

	// System messages
	Prefix       lipgloss.Style
	Connected    lipgloss.Style
	Disconnected lipgloss.Style

	// Misc
	Muted lipgloss.Style
	Error lipgloss.Style
}

// DefaultStyles returns the default style configuration bound to r, so color
// support follows the writer r renders for.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Output: r.NewStyle(),

		Prefix: r.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true),
		Connected: r.NewStyle().
			Foreground(lipgloss.Color("71")), // Muted green
		Disconnected: r.NewStyle().
			Foreground(lipgloss.Color("243")), // Gray (subtle)

		Muted: r.NewStyle().
			Foreground(lipgloss.Color("240")),
		Error: r.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}
