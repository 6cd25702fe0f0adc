package tui

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/profile"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

const barWidth = 30

// ProgressBar renders percent as a fixed-width bar.
func ProgressBar(percent, width int) string {
	if width <= 0 {
		width = barWidth
	}
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	return StyleBarFilled.Render(strings.Repeat("█", filled)) +
		StyleBarEmpty.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3d%%", percent)
}

// RenderTranscript renders every turn; the turn at selected is highlighted.
// Pass -1 to highlight nothing.
func RenderTranscript(t transcript.Transcript, selected int) string {
	if len(t.Turns) == 0 {
		return StyleMuted.Render("(empty transcript)")
	}
	var b strings.Builder
	for i, turn := range t.Turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		var lines []string
		lines = append(lines, fmt.Sprintf("%s %s",
			StyleSpeaker.Render(turn.SpeakerID),
			StyleMuted.Render("["+transcript.FormatTimestamp(turn.StartTime)+"]")))
		for _, seg := range turn.Segments {
			lines = append(lines, "  "+seg.Text)
		}
		block := strings.Join(lines, "\n")
		if i == selected {
			block = StyleSelected.Render(block)
		}
		b.WriteString(block)
	}
	return b.String()
}

// RenderReport lists dependency checks with a mark per item.
func RenderReport(r deps.Report) string {
	var b strings.Builder
	for _, s := range r.Items {
		if s.Installed {
			detail := s.Path
			if s.Version != "" {
				detail += " (" + s.Version + ")"
			}
			fmt.Fprintf(&b, "%s %s %s\n", StyleSuccess.Render("✓"), s.Name, StyleMuted.Render(detail))
			continue
		}
		fmt.Fprintf(&b, "%s %s %s\n", StyleError.Render("✗"), s.Name, StyleWarning.Render(s.Message))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderProfiles lists the model tiers, marking current.
func RenderProfiles(current string) string {
	var b strings.Builder
	for _, p := range profile.List() {
		mark := " "
		if p.ID == current {
			mark = StyleSuccess.Render("*")
		}
		fmt.Fprintf(&b, "%s %-7s %s\n", mark, p.ID, StyleMuted.Render(p.Summary()))
	}
	return strings.TrimRight(b.String(), "\n")
}
