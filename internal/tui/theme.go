package tui

import (
	"io"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette for diarscribe TUI
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"} // Purple - main accent
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"} // Cyan - speaker headers

	// Status colors
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}

	// Text colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F8FAFC"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}

	ColorHighlight = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#334155"} // Selection highlight
)

// Setup picks the color profile for w and whether adaptive colors use
// their dark variant.
func Setup(w io.Writer, dark bool) {
	out := termenv.NewOutput(w)
	lipgloss.SetColorProfile(out.EnvColorProfile())
	lipgloss.SetHasDarkBackground(dark)
}

// clearScreen clears the terminal screen
func clearScreen(w io.Writer) {
	termenv.NewOutput(w).ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
