package transcript

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// secondsPerRune estimates a segment's duration when only its text is known.
const secondsPerRune = 0.1

// headerPattern matches a line starting "<speakerId> [m:ss]"; the id may
// contain spaces and anything after the timestamp is ignored.
var headerPattern = regexp.MustCompile(`^(\S.*?)\s*\[(\d+):(\d{2})\]`)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeText makes s representable as one segment line: line breaks
// become spaces and surrounding whitespace is trimmed.
func NormalizeText(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// FormatTimestamp renders seconds as m:ss with floored components.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	whole := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

// Header renders the first line of a turn.
func Header(turn SpeakerTurn) string {
	return fmt.Sprintf("%s [%s]", turn.SpeakerID, FormatTimestamp(turn.StartTime))
}

// Encode renders t as editable plain text: a header per turn, one line per
// segment, and a blank line between turns.
func Encode(t Transcript) string {
	var b strings.Builder
	for i, turn := range t.Turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Header(turn))
		for _, seg := range turn.Segments {
			b.WriteByte('\n')
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// Decode parses text produced by Encode, possibly after manual edits.
//
// Segment end times cannot be recovered from text; each decoded segment
// starts at its turn's start and ends secondsPerRune per character later.
// Lines before the first header are dropped, as are turns left without
// segments. Decode never fails.
func Decode(text string) Transcript {
	var (
		turns   []SpeakerTurn
		current *SpeakerTurn
	)

	closeTurn := func() {
		if current != nil && len(current.Segments) > 0 {
			turns = append(turns, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}

		if start, id, ok := parseHeader(line); ok {
			closeTurn()
			current = &SpeakerTurn{SpeakerID: id, StartTime: start}
			continue
		}

		if current == nil {
			continue
		}
		current.Segments = append(current.Segments, Segment{
			Text:  line,
			Start: current.StartTime,
			End:   current.StartTime + secondsPerRune*float64(utf8.RuneCountInString(line)),
		})
	}
	closeTurn()

	return Transcript{Turns: turns}
}

func parseHeader(line string) (float64, string, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, "", false
	}
	seconds, err := strconv.Atoi(m[3])
	if err != nil || seconds > 59 {
		return 0, "", false
	}
	return float64(minutes*60 + seconds), m[1], true
}

// WriteFile exports t as plain text to path, creating parent directories.
func WriteFile(path string, t Transcript) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	content := Encode(t)
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write export %s: %w", path, err)
	}
	return nil
}
