package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette — calm, readable on dark terminals
var (
	Primary = lipgloss.Color("#38BDF8") // Sky
	Accent  = lipgloss.Color("#F59E0B") // Amber
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	BgCard  = lipgloss.Color("#1E293B") // Dark Slate
	Border  = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Mastered = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	Repeat = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	TubeActive = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	TubeIdle = lipgloss.NewStyle().
			Foreground(TextDim)
)
