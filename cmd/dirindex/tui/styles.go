// Package tui provides an interactive terminal browser for dirindex
// snapshots, built on Bubble Tea, Lip Gloss and Bubbles.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI.
var (
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333333")
	folderColor  = lipgloss.Color("#5FAFFF")
	sizeColor    = lipgloss.Color("#00AAFF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(mutedColor)

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentColor).
			Underline(true)

	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Width(9)

	treeRowHighlightStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#4A2040")).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	treeRowNormalStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#CCCCCC"))

	folderNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(folderColor)

	sizeTextStyle = lipgloss.NewStyle().
			Foreground(sizeColor)
)

// center horizontally centers s within width.
func center(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}
