package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors taken from Catppuccin Mocha palette
	primaryColor   = lipgloss.Color("#89b4fa")
	secondaryColor = lipgloss.Color("#a6e3a1")
	dangerColor    = lipgloss.Color("#f38ba8")
	pendingColor   = lipgloss.Color("#fab387")
	mutedColor     = lipgloss.Color("#6c7086")
	textColor      = lipgloss.Color("#f5e0dc")

	selectedStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1)

	normalStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	successStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	errorBannerStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Background(dangerColor).
				Bold(true).
				Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	focusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#313244"))

	headerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(textColor)

	headerButtonStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	pendingBadgeStyle = lipgloss.NewStyle().
				Foreground(pendingColor).
				Bold(true)

	deletedBadgeStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)
)
