// ABOUTME: Shared lipgloss styles for consistent TUI appearance
// ABOUTME: Defines colors, borders, and text styles used across components

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - Core palette
	Primary   = lipgloss.Color("#2563EB") // Blue
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F97316") // Orange
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB") // Light

	// Colors - Extended palette
	Accent  = lipgloss.Color("#60A5FA") // Lighter blue for highlights
	Surface = lipgloss.Color("#374151") // Elevated surface background
	Star    = lipgloss.Color("#FACC15") // Yellow

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginBottom(1)

	// Status indicators
	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	// Panels
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	ActivePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	// Banner is the idle-logout warning strip
	Banner = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(Warning).
		Bold(true).
		Padding(0, 1)

	// Key style for keyboard shortcuts
	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	// Selected row in lists
	Selected = lipgloss.NewStyle().
			Foreground(Text).
			Background(Surface).
			Bold(true)
)

// UsageColor picks the storage bar color: red above 90%, orange above 75%.
func UsageColor(percent float64) lipgloss.Color {
	switch {
	case percent > 90:
		return Danger
	case percent > 75:
		return Warning
	default:
		return Primary
	}
}
