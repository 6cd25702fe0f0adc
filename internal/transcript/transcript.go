package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// Segment is the smallest timed unit of transcribed text.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpeakerTurn is a labeled span of consecutive segments attributed to one speaker.
// StartTime mirrors the start of the first segment.
type SpeakerTurn struct {
	SpeakerID string    `json:"speakerId"`
	StartTime float64   `json:"startTime"`
	Segments  []Segment `json:"segments"`
}

// Transcript is the structured result of a finished transcription job.
type Transcript struct {
	Turns []SpeakerTurn `json:"segments"`
}

var (
	ErrNoTurns        = errors.New("transcript has no speaker turns")
	ErrEmptyTurn      = errors.New("speaker turn has no segments")
	ErrEmptySpeakerID = errors.New("speaker turn has empty speaker id")
	ErrNegativeTime   = errors.New("negative timestamp")
	ErrInvertedRange  = errors.New("segment end before start")
	ErrUnorderedTurns = errors.New("speaker turns not ordered by start time")
	ErrStartMismatch  = errors.New("turn start time differs from first segment start")
)

// Clone returns a deep copy so callers can mutate it without touching t.
func (t Transcript) Clone() Transcript {
	if t.Turns == nil {
		return Transcript{}
	}
	turns := make([]SpeakerTurn, len(t.Turns))
	for i, turn := range t.Turns {
		turns[i] = turn
		turns[i].Segments = append([]Segment(nil), turn.Segments...)
	}
	return Transcript{Turns: turns}
}

// SegmentCount returns the number of segments across all turns.
func (t Transcript) SegmentCount() int {
	n := 0
	for _, turn := range t.Turns {
		n += len(turn.Segments)
	}
	return n
}

// Speakers lists distinct speaker ids in order of first appearance.
func (t Transcript) Speakers() []string {
	seen := make(map[string]bool, len(t.Turns))
	var ids []string
	for _, turn := range t.Turns {
		if seen[turn.SpeakerID] {
			continue
		}
		seen[turn.SpeakerID] = true
		ids = append(ids, turn.SpeakerID)
	}
	return ids
}

// HasSpeaker reports whether any turn is attributed to id.
func (t Transcript) HasSpeaker(id string) bool {
	for _, turn := range t.Turns {
		if turn.SpeakerID == id {
			return true
		}
	}
	return false
}

// Equal compares two transcripts field by field.
func (t Transcript) Equal(other Transcript) bool {
	if len(t.Turns) != len(other.Turns) {
		return false
	}
	for i := range t.Turns {
		a, b := t.Turns[i], other.Turns[i]
		if a.SpeakerID != b.SpeakerID || a.StartTime != b.StartTime || len(a.Segments) != len(b.Segments) {
			return false
		}
		for j := range a.Segments {
			if a.Segments[j] != b.Segments[j] {
				return false
			}
		}
	}
	return true
}

// Validate checks the structure of a finished transcript.
// Segment text is not checked; empty text is allowed while editing.
func (t Transcript) Validate() error {
	if len(t.Turns) == 0 {
		return ErrNoTurns
	}

	prevStart := 0.0
	for i, turn := range t.Turns {
		if strings.TrimSpace(turn.SpeakerID) == "" {
			return fmt.Errorf("turn %d: %w", i, ErrEmptySpeakerID)
		}
		if len(turn.Segments) == 0 {
			return fmt.Errorf("turn %d (%s): %w", i, turn.SpeakerID, ErrEmptyTurn)
		}
		if turn.StartTime < 0 {
			return fmt.Errorf("turn %d (%s): %w: %v", i, turn.SpeakerID, ErrNegativeTime, turn.StartTime)
		}
		if i > 0 && turn.StartTime < prevStart {
			return fmt.Errorf("turn %d (%s) starts at %v after %v: %w", i, turn.SpeakerID, turn.StartTime, prevStart, ErrUnorderedTurns)
		}
		if turn.StartTime != turn.Segments[0].Start {
			return fmt.Errorf("turn %d (%s): %w", i, turn.SpeakerID, ErrStartMismatch)
		}
		for j, seg := range turn.Segments {
			if seg.Start < 0 || seg.End < 0 {
				return fmt.Errorf("turn %d segment %d: %w", i, j, ErrNegativeTime)
			}
			if seg.End < seg.Start {
				return fmt.Errorf("turn %d segment %d: %w (%v < %v)", i, j, ErrInvertedRange, seg.End, seg.Start)
			}
		}
		prevStart = turn.StartTime
	}
	return nil
}
