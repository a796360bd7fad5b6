// Package tui provides shared theme and styles for the terminal chat client.
package tui

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9") // sky
	ColorSecondary = lipgloss.Color("#14B8A6") // teal
	ColorAccent    = lipgloss.Color("#F59E0B") // amber

	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorText    = lipgloss.Color("#E5E7EB")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	Dimmed = lipgloss.NewStyle().
		Foreground(ColorMuted)

	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// ErrorStyle avoids colliding with the builtin error.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	// UserLabel prefixes lines typed by the user.
	UserLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	// BotLabel prefixes assistant replies.
	BotLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	Body = lipgloss.NewStyle().
		Foreground(ColorText)

	Help = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Border frames the transcript.
	Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(0, 1)
)

// StatusText returns a colored connection label.
func StatusText(connected bool) string {
	if connected {
		return Success.Render("● connected")
	}
	return ErrorStyle.Render("● disconnected")
}
