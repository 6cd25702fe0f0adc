package tui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/history"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// ErrAborted is returned by a Prompter when the user backs out of a prompt.
var ErrAborted = errors.New("aborted")

// Action is one entry of the editor menu.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionRename Action = "rename"
	ActionUndo   Action = "undo"
	ActionRedo   Action = "redo"
	ActionText   Action = "text"
	ActionExport Action = "export"
	ActionQuit   Action = "quit"
)

// SegmentRef addresses a segment by its position in the transcript.
// SpeakerID and Start are for display only.
type SegmentRef struct {
	Turn      int
	Index     int
	SpeakerID string
	Start     float64
	Text      string
}

// Prompter asks the user for input. Every method may return ErrAborted.
type Prompter interface {
	Action(view string, available []Action) (Action, error)
	PickSegment(t transcript.Transcript) (SegmentRef, error)
	// EditSegment returns the new draft and whether the user is done editing.
	EditSegment(ref SegmentRef, draft string) (text string, done bool, err error)
	PickTurn(t transcript.Transcript) (int, error)
	SpeakerName(current string, existing []string) (string, error)
	EditText(text string) (string, error)
	ExportPath(suggested string) (string, error)
	Confirm(title string) (bool, error)
}

// EditRecorder counts applied edits.
type EditRecorder interface {
	EditApplied(operation string)
}

type nopRecorder struct{}

func (nopRecorder) EditApplied(string) {}

// Editor runs the interactive edit loop over a history.
type Editor struct {
	History  *history.History
	Prompter Prompter
	Metrics  EditRecorder
	// Export writes t to path; defaults to transcript.WriteFile.
	Export     func(path string, t transcript.Transcript) error
	ExportPath string
	Out        io.Writer
	Log        zerolog.Logger

	saved transcript.Transcript
}

// Run shows the menu until the user quits. Aborting the menu itself quits;
// aborting a sub-prompt returns to the menu.
func (e *Editor) Run() error {
	if e.Metrics == nil {
		e.Metrics = nopRecorder{}
	}
	if e.Export == nil {
		e.Export = transcript.WriteFile
	}
	if e.Out == nil {
		e.Out = io.Discard
	}
	e.saved = e.History.Current()

	for {
		action, err := e.Prompter.Action(RenderTranscript(e.History.Current(), -1), e.available())
		if errors.Is(err, ErrAborted) {
			action = ActionQuit
		} else if err != nil {
			return err
		}

		if action == ActionQuit {
			quit, err := e.confirmQuit()
			if err != nil && !errors.Is(err, ErrAborted) {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		if err := e.apply(action); err != nil {
			if errors.Is(err, ErrAborted) {
				continue
			}
			if isUserError(err) {
				e.status(StyleError, err.Error())
				continue
			}
			return err
		}
	}
}

func (e *Editor) available() []Action {
	actions := []Action{ActionEdit, ActionRename}
	if e.History.CanUndo() {
		actions = append(actions, ActionUndo)
	}
	if e.History.CanRedo() {
		actions = append(actions, ActionRedo)
	}
	return append(actions, ActionText, ActionExport, ActionQuit)
}

func (e *Editor) apply(action Action) error {
	switch action {
	case ActionEdit:
		return e.editSegment()
	case ActionRename:
		return e.rename()
	case ActionUndo:
		if e.History.Undo() {
			e.Metrics.EditApplied("undo")
			e.status(StyleMuted, "undone")
		}
	case ActionRedo:
		if e.History.Redo() {
			e.Metrics.EditApplied("redo")
			e.status(StyleMuted, "redone")
		}
	case ActionText:
		return e.applyText()
	case ActionExport:
		return e.export()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func (e *Editor) editSegment() error {
	ref, err := e.Prompter.PickSegment(e.History.Current())
	if err != nil {
		return err
	}

	draft := ref.Text
	for {
		text, done, err := e.Prompter.EditSegment(ref, draft)
		if err != nil {
			// drop the uncommitted draft
			if rerr := e.History.LiveEditSegmentAt(ref.Turn, ref.Index, ref.Text); rerr != nil {
				return rerr
			}
			return err
		}
		if err := e.History.LiveEditSegmentAt(ref.Turn, ref.Index, text); err != nil {
			return err
		}
		draft = text
		if done {
			break
		}
	}

	if draft == ref.Text {
		e.status(StyleMuted, "no changes")
		return nil
	}
	if err := e.History.CommitSegmentAt(ref.Turn, ref.Index, draft); err != nil {
		return err
	}
	e.Metrics.EditApplied("segment")
	e.Log.Debug().Str("speaker", ref.SpeakerID).Float64("start", ref.Start).Msg("segment committed")
	e.status(StyleSuccess, "segment updated")
	return nil
}

func (e *Editor) rename() error {
	cur := e.History.Current()
	idx, err := e.Prompter.PickTurn(cur)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(cur.Turns) {
		return history.ErrTurnOutOfRange
	}
	oldID := cur.Turns[idx].SpeakerID

	name, err := e.Prompter.SpeakerName(oldID, e.History.Speakers())
	if err != nil {
		return err
	}

	applyAll := false
	if n := countTurns(cur, oldID); n > 1 {
		applyAll, err = e.Prompter.Confirm(fmt.Sprintf("Rename all %d turns of %s?", n, oldID))
		if err != nil {
			return err
		}
	}

	outcome, err := e.History.RenameSpeaker(idx, name, applyAll)
	if err != nil {
		return err
	}
	e.Metrics.EditApplied("rename")
	e.Log.Debug().Str("from", oldID).Str("to", name).Bool("all", applyAll).Str("outcome", string(outcome)).Msg("speaker renamed")

	switch outcome {
	case history.MergedSpeaker:
		e.status(StyleSuccess, fmt.Sprintf("merged into existing speaker %s", name))
	default:
		e.status(StyleSuccess, fmt.Sprintf("created speaker %s", name))
	}
	return nil
}

func (e *Editor) applyText() error {
	text, err := e.Prompter.EditText(transcript.Encode(e.History.Current()))
	if err != nil {
		return err
	}
	decoded := transcript.Decode(text)
	if len(decoded.Turns) == 0 {
		ok, err := e.Prompter.Confirm("The text has no speaker turns. Replace the transcript anyway?")
		if err != nil || !ok {
			return err
		}
	}
	got := e.History.ApplyText(text)
	e.Metrics.EditApplied("text")
	e.status(StyleSuccess, fmt.Sprintf("applied text: %d turns", len(got.Turns)))
	return nil
}

func (e *Editor) export() error {
	path, err := e.Prompter.ExportPath(e.ExportPath)
	if err != nil {
		return err
	}
	cur := e.History.Current()
	if err := e.Export(path, cur); err != nil {
		return userError{err}
	}
	e.ExportPath = path
	e.saved = cur
	e.Log.Info().Str("path", path).Msg("transcript exported")
	e.status(StyleSuccess, "exported to "+path)
	return nil
}

func (e *Editor) confirmQuit() (bool, error) {
	if e.History.Current().Equal(e.saved) {
		return true, nil
	}
	return e.Prompter.Confirm("Quit without exporting your changes?")
}

func (e *Editor) status(style lipgloss.Style, msg string) {
	fmt.Fprintln(e.Out, style.Render(msg))
}

func countTurns(t transcript.Transcript, speakerID string) int {
	n := 0
	for _, turn := range t.Turns {
		if turn.SpeakerID == speakerID {
			n++
		}
	}
	return n
}

// userError marks failures reported in the status line instead of ending
// the session.
type userError struct{ err error }

func (u userError) Error() string { return u.err.Error() }
func (u userError) Unwrap() error { return u.err }

func isUserError(err error) bool {
	var u userError
	return errors.As(err, &u) ||
		errors.Is(err, history.ErrEmptySpeaker) ||
		errors.Is(err, history.ErrSegmentNotFound) ||
		errors.Is(err, history.ErrAmbiguousSegment) ||
		errors.Is(err, history.ErrTurnOutOfRange)
}
