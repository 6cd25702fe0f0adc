package history

import (
	"errors"
	"strings"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// DefaultMaxSnapshots bounds the history when Options leave it unset.
const DefaultMaxSnapshots = 200

var (
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrAmbiguousSegment = errors.New("segment address matches more than one segment")
	ErrTurnOutOfRange   = errors.New("turn index out of range")
	ErrEmptySpeaker     = errors.New("speaker id must not be empty")
)

// Snapshot is one immutable point in the edit history.
type Snapshot struct {
	Transcript transcript.Transcript
	Timestamp  time.Time
}

// Options configures a History.
type Options struct {
	// MaxSnapshots caps retained snapshots; the oldest are dropped first.
	MaxSnapshots int
	// Now is the clock used for snapshot timestamps.
	Now func() time.Time
}

// RenameOutcome tells whether a rename introduced a speaker or reused one.
type RenameOutcome string

const (
	CreatedSpeaker RenameOutcome = "created"
	MergedSpeaker  RenameOutcome = "merged"
)

// History is a linear undo/redo stack over transcript snapshots.
// It is not safe for concurrent use.
type History struct {
	snapshots []Snapshot
	cursor    int
	max       int
	now       func() time.Time

	// work is the snapshot at the cursor plus any uncommitted live edits.
	work transcript.Transcript
}

// New starts a history whose only snapshot is a copy of initial.
func New(initial transcript.Transcript, opts Options) *History {
	h := &History{
		max: opts.MaxSnapshots,
		now: opts.Now,
	}
	if h.max <= 0 {
		h.max = DefaultMaxSnapshots
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.snapshots = []Snapshot{{Transcript: initial.Clone(), Timestamp: h.now()}}
	h.reset()
	return h
}

// Current returns a copy of the working transcript: the snapshot at the
// cursor with any live edits applied.
func (h *History) Current() transcript.Transcript {
	return h.work.Clone()
}

// CurrentSnapshot returns the committed snapshot at the cursor, transcript copied.
func (h *History) CurrentSnapshot() Snapshot {
	s := h.snapshots[h.cursor]
	s.Transcript = s.Transcript.Clone()
	return s
}

func (h *History) Len() int      { return len(h.snapshots) }
func (h *History) Cursor() int   { return h.cursor }
func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Speakers lists the distinct speakers of the current snapshot.
func (h *History) Speakers() []string {
	return h.work.Speakers()
}

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	h.reset()
	return true
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	h.reset()
	return true
}

// LiveEditSegmentText replaces a segment's text in the working transcript
// without recording history, for per-keystroke updates. Committed
// snapshots are never touched.
func (h *History) LiveEditSegmentText(speakerID string, segmentStart float64, text string) error {
	ti, si, err := findSegment(h.work, speakerID, segmentStart)
	if err != nil {
		return err
	}
	return h.LiveEditSegmentAt(ti, si, text)
}

// CommitSegmentText records one logical text edit as a new snapshot.
func (h *History) CommitSegmentText(speakerID string, segmentStart float64, text string) error {
	ti, si, err := findSegment(h.work, speakerID, segmentStart)
	if err != nil {
		return err
	}
	return h.CommitSegmentAt(ti, si, text)
}

// LiveEditSegmentAt is LiveEditSegmentText addressed by position.
func (h *History) LiveEditSegmentAt(turnIndex, segmentIndex int, text string) error {
	if !validSegment(h.work, turnIndex, segmentIndex) {
		return ErrSegmentNotFound
	}
	h.work.Turns[turnIndex].Segments[segmentIndex].Text = text
	return nil
}

// CommitSegmentAt is CommitSegmentText addressed by position.
func (h *History) CommitSegmentAt(turnIndex, segmentIndex int, text string) error {
	next := h.Current()
	if !validSegment(next, turnIndex, segmentIndex) {
		return ErrSegmentNotFound
	}
	next.Turns[turnIndex].Segments[segmentIndex].Text = text
	h.push(next)
	return nil
}

// RenameSpeaker relabels the turn at turnIndex. With applyToAll, every other
// turn that carried the same original id is relabeled as well.
func (h *History) RenameSpeaker(turnIndex int, newSpeakerID string, applyToAll bool) (RenameOutcome, error) {
	id := strings.TrimSpace(newSpeakerID)
	if id == "" {
		return "", ErrEmptySpeaker
	}

	next := h.Current()
	if turnIndex < 0 || turnIndex >= len(next.Turns) {
		return "", ErrTurnOutOfRange
	}

	outcome := CreatedSpeaker
	if next.HasSpeaker(id) {
		outcome = MergedSpeaker
	}

	original := next.Turns[turnIndex].SpeakerID
	for i := range next.Turns {
		if i == turnIndex || (applyToAll && next.Turns[i].SpeakerID == original) {
			next.Turns[i].SpeakerID = id
		}
	}

	h.push(next)
	return outcome, nil
}

// ApplyText replaces the current transcript with the decoding of text,
// recording one snapshot. It is the free-text counterpart of the
// structured edits above and inherits the codec's timing loss.
func (h *History) ApplyText(text string) transcript.Transcript {
	next := transcript.Decode(text)
	h.push(next)
	return next.Clone()
}

// push appends t after the cursor, discarding any redo tail.
func (h *History) push(t transcript.Transcript) {
	h.snapshots = append(h.snapshots[:h.cursor+1], Snapshot{Transcript: t, Timestamp: h.now()})
	h.cursor = len(h.snapshots) - 1

	if over := len(h.snapshots) - h.max; over > 0 {
		h.snapshots = append([]Snapshot(nil), h.snapshots[over:]...)
		h.cursor -= over
	}
	h.reset()
}

// reset discards live edits by recopying the snapshot at the cursor.
func (h *History) reset() {
	h.work = h.snapshots[h.cursor].Transcript.Clone()
}

// findSegment locates the segment starting at start within the turns of
// speakerID. Two matches make the address ambiguous, which happens once
// decoded text has given every segment of a turn the turn's start.
func findSegment(t transcript.Transcript, speakerID string, start float64) (int, int, error) {
	ti, si, found := 0, 0, false
	for i, turn := range t.Turns {
		if turn.SpeakerID != speakerID {
			continue
		}
		for j, seg := range turn.Segments {
			if seg.Start != start {
				continue
			}
			if found {
				return 0, 0, ErrAmbiguousSegment
			}
			ti, si, found = i, j, true
		}
	}
	if !found {
		return 0, 0, ErrSegmentNotFound
	}
	return ti, si, nil
}

func validSegment(t transcript.Transcript, turnIndex, segmentIndex int) bool {
	return turnIndex >= 0 && turnIndex < len(t.Turns) &&
		segmentIndex >= 0 && segmentIndex < len(t.Turns[turnIndex].Segments)
}
