package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps the calendar grid.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle renders error lines.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// WeekdayStyle renders the weekday header row.
var WeekdayStyle = lipgloss.NewStyle().
	Width(4).
	Align(lipgloss.Center).
	Foreground(ColorGray)

// DayStyle returns the cell style for a calendar day.
func DayStyle(completed, selected, today bool) lipgloss.Style {
	base := lipgloss.NewStyle().Width(4).Align(lipgloss.Center)

	if completed {
		base = base.Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(ColorGreen)
	}
	if today {
		base = base.Underline(true)
	}
	if selected {
		base = base.Reverse(true)
	}
	return base
}

// StatusStyle returns a color-coded style for a day's completion status.
func StatusStyle(completed bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if completed {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorGray)
}
