package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-tracker/internal/theme"
)

// Layout tracks the terminal size and renders the frame around a view.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// RenderHeader renders the top bar with title on the left and info on the
// right, padded to the full width.
func (l Layout) RenderHeader(title, info string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(info)
	return l.fill(left, right, theme.HeaderStyle)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle.Render(hints), "", theme.StatusBarStyle)
}

// RenderWithFrame vertically joins the header, content area and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (l Layout) fill(left, right string, style lipgloss.Style) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
