package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusOK = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusFail = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))
)

// StatusBadge renders a converged/failed marker in the matching color.
func StatusBadge(converged bool) string {
	if converged {
		return StatusOK.Render("ok")
	}
	return StatusFail.Render("FAIL")
}

// Separator draws a subtle horizontal rule.
func Separator(width int) string {
	if width < 1 {
		width = 1
	}
	return Subtle.Render(strings.Repeat("─", width))
}
