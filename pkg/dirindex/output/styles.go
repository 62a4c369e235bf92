package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorFolder  = lipgloss.Color("75")
	ColorMuted   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("255")
)

var (
	// HeaderBox holds the folder name, root and snapshot path.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox holds the totals.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorValue)

	FolderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorFolder)

	FileStyle = lipgloss.NewStyle().
			Foreground(ColorValue)

	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// BranchStyle draws the tree connectors.
	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
