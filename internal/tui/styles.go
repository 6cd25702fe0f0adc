package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Base styles for diarscribe TUI components
var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Speaker style for turn headers
	StyleSpeaker = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and log lines
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	// Selected style for the focused turn
	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight)

	StyleBarFilled = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	StyleBarEmpty = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

const logoASCII = `
     _ _                              _ _
  __| (_) __ _ _ __ ___  ___ _ __(_) |__   ___
 / _' | |/ _' | '__/ __|/ __| '__| | '_ \ / _ \
| (_| | | (_| | |  \__ \ (__| |  | | |_) |  __/
 \__,_|_|\__,_|_|  |___/\___|_|  |_|_.__/ \___|`

// Logo returns the diarscribe ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
