package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981") // Green for self
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
	activeBorder   = lipgloss.Color("#F59E0B") // Amber for focus
	onlineColor    = lipgloss.Color("#34D399")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true).
				PaddingLeft(1).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(secondaryColor)

	unselectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	onlineStyle = lipgloss.NewStyle().
			Foreground(onlineColor)

	chatWindowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	ownMessageStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)
	otherMessageStyle = lipgloss.NewStyle().
				Foreground(primaryColor)

	recordingStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Blink(true)
)

const banner = `
  ██████╗██╗  ██╗ █████╗ ████████╗██╗   ██╗██╗
 ██╔════╝██║  ██║██╔══██╗╚══██╔══╝██║   ██║██║
 ██║     ███████║███████║   ██║   ██║   ██║██║
 ██║     ██╔══██║██╔══██║   ██║   ██║   ██║██║
 ╚██████╗██║  ██║██║  ██║   ██║   ╚██████╔╝██║
  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝
`
