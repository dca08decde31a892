package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// HeaderStyle is used for the application title bar.
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

// SelectedStyle highlights the focused row.
var SelectedStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// DoneStyle renders completed items.
var DoneStyle = lipgloss.NewStyle().
	Strikethrough(true).
	Foreground(ColorGray)

// ProgressStyle renders per-checklist completion counters.
var ProgressStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// ErrorStyle renders the most recent mutation failure.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// HelpStyle is used for keyboard shortcut hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// TreePrefixStyle renders the tree-drawing characters.
var TreePrefixStyle = lipgloss.NewStyle().
	Foreground(ColorSubtle)

// PriorityStyle returns the style for a priority tag.
func PriorityStyle(priority string) lipgloss.Style {
	switch priority {
	case "critical":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	case "high":
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case "low":
		return lipgloss.NewStyle().Foreground(ColorGray)
	default:
		return lipgloss.NewStyle().Foreground(ColorWhite)
	}
}
