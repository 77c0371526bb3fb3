package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent     = lipgloss.Color("#7C3AED")
	errorColor = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	errorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(1).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)
