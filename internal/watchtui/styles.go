package watchtui

import "github.com/charmbracelet/lipgloss"

// Color palette: cyan for labels, green for success, red for failure, dim
// grey for secondary text.
var (
	colorCyan   = lipgloss.Color("#00BFFF")
	colorGreen  = lipgloss.Color("#00FF87")
	colorYellow = lipgloss.Color("#FFD700")
	colorRed    = lipgloss.Color("#FF5F5F")
	colorDim    = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	styleHeader = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	styleResourceName = lipgloss.NewStyle().
				Foreground(colorWhite).
				Bold(true)

	styleTaskBar = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleMilestone = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleDim = lipgloss.NewStyle().
			Foreground(colorDim)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorDim)
)
