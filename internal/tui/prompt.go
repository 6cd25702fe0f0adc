package tui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/diarscribe/internal/profile"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

var actionLabels = map[Action]string{
	ActionEdit:   "Edit a segment",
	ActionRename: "Rename a speaker",
	ActionUndo:   "Undo",
	ActionRedo:   "Redo",
	ActionText:   "Edit as plain text",
	ActionExport: "Export",
	ActionQuit:   "Quit",
}

const newSpeakerValue = "\x00new"

// HuhPrompter asks questions with huh forms on the terminal.
type HuhPrompter struct {
	Out io.Writer
}

func run(form *huh.Form) error {
	err := form.WithTheme(getTheme()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func (p HuhPrompter) Action(view string, available []Action) (Action, error) {
	if p.Out != nil {
		clearScreen(p.Out)
		fmt.Fprintln(p.Out, StyleBox.Render(view))
	}

	options := make([]huh.Option[Action], 0, len(available))
	for _, a := range available {
		options = append(options, huh.NewOption(actionLabels[a], a))
	}
	selected := available[0]
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Action]().
				Title("What would you like to do?").
				Options(options...).
				Value(&selected),
		),
	))
	return selected, err
}

func (p HuhPrompter) PickSegment(t transcript.Transcript) (SegmentRef, error) {
	var options []huh.Option[string]
	refs := map[string]SegmentRef{}
	for ti, turn := range t.Turns {
		for si, seg := range turn.Segments {
			key := fmt.Sprintf("%d/%d", ti, si)
			refs[key] = SegmentRef{Turn: ti, Index: si, SpeakerID: turn.SpeakerID, Start: seg.Start, Text: seg.Text}
			label := fmt.Sprintf("%s [%s] %s", turn.SpeakerID, transcript.FormatTimestamp(seg.Start), truncate(seg.Text, 60))
			options = append(options, huh.NewOption(label, key))
		}
	}
	if len(options) == 0 {
		return SegmentRef{}, ErrAborted
	}

	var key string
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Segment").
				Options(options...).
				Value(&key),
		),
	))
	if err != nil {
		return SegmentRef{}, err
	}
	return refs[key], nil
}

func (p HuhPrompter) EditSegment(ref SegmentRef, draft string) (string, bool, error) {
	text := draft
	done := true
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(fmt.Sprintf("%s [%s]", ref.SpeakerID, transcript.FormatTimestamp(ref.Start))).
				Description("Original: "+truncate(ref.Text, 80)).
				Value(&text),
			huh.NewConfirm().
				Title("Save this segment?").
				Affirmative("Save").
				Negative("Keep editing").
				Value(&done),
		),
	))
	return strings.TrimSpace(text), done, err
}

func (p HuhPrompter) PickTurn(t transcript.Transcript) (int, error) {
	options := make([]huh.Option[int], 0, len(t.Turns))
	for i, turn := range t.Turns {
		preview := ""
		if len(turn.Segments) > 0 {
			preview = truncate(turn.Segments[0].Text, 50)
		}
		options = append(options, huh.NewOption(fmt.Sprintf("%s %s", transcript.Header(turn), preview), i))
	}
	var idx int
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Turn").
				Options(options...).
				Value(&idx),
		),
	))
	return idx, err
}

func (p HuhPrompter) SpeakerName(current string, existing []string) (string, error) {
	options := []huh.Option[string]{huh.NewOption("New speaker...", newSpeakerValue)}
	for _, id := range existing {
		if id != current {
			options = append(options, huh.NewOption(id, id))
		}
	}

	choice := newSpeakerValue
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Rename "+current).
				Description("Choosing an existing speaker merges into it").
				Options(options...).
				Value(&choice),
		),
	))
	if err != nil || choice != newSpeakerValue {
		return choice, err
	}

	var name string
	err = run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Speaker name").
				Placeholder(current).
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
		),
	))
	return strings.TrimSpace(name), err
}

func (p HuhPrompter) EditText(text string) (string, error) {
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Transcript").
				Description("Header lines look like \"Speaker [m:ss]\"; one segment per line").
				Lines(20).
				Value(&text),
		),
	))
	return text, err
}

func (p HuhPrompter) ExportPath(suggested string) (string, error) {
	path := suggested
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Export to").
				Value(&path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("path cannot be empty")
					}
					return nil
				}),
		),
	))
	return strings.TrimSpace(path), err
}

func (p HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	))
	return ok, err
}

// JobParams are the choices collected before a transcription starts.
type JobParams struct {
	SpeakerCount int
	Profile      string
}

// PromptJob asks for the speaker count and model tier, starting from
// defaults.
func PromptJob(defaults JobParams) (JobParams, error) {
	speakers := strconv.Itoa(defaults.SpeakerCount)
	selected := defaults.Profile
	if !profile.Valid(selected) {
		selected = profile.Default
	}

	var options []huh.Option[string]
	for _, p := range profile.List() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s, %s)", p.Name, p.Memory, p.TenMinutes), p.ID))
	}

	err := run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Number of speakers").
				Value(&speakers).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Model").
				Description("Larger models are slower and more accurate").
				Options(options...).
				Value(&selected),
		),
	))
	if err != nil {
		return defaults, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(speakers))
	return JobParams{SpeakerCount: n, Profile: selected}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
