package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/history"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// File follows one text file and reports its content whenever it changes.
type File struct {
	path string
	last string
	log  zerolog.Logger
}

// NewFile watches path. initial is the content already known to the caller;
// a write that leaves the file equal to it is not reported.
func NewFile(path, initial string, log zerolog.Logger) *File {
	return &File{path: path, last: initial, log: log}
}

// Run blocks until ctx is done, calling onChange from this goroutine.
func (f *File) Run(ctx context.Context, onChange func(text string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory so editors that replace the file are followed
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(f.path), err)
	}
	name := filepath.Base(f.path)
	f.log.Info().Str("file", f.path).Msg("watching for edits")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			// Only react to Write and Create events (ignore Chmod, Remove, etc.)
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			f.reload(onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn().Err(err).Msg("watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

func (f *File) reload(onChange func(text string)) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.log.Warn().Err(err).Str("file", f.path).Msg("failed to read edited file")
		return
	}
	text := string(data)
	if text == f.last {
		return
	}
	f.last = text
	onChange(text)
}

// Session feeds external edits of a text file into an edit history.
type Session struct {
	History *history.History
	Log     zerolog.Logger
	// OnApply is called after each applied edit with the new transcript.
	OnApply func(t transcript.Transcript)
}

// Follow writes the current transcript to path and applies every later
// change of the file as one history snapshot until ctx is done.
func (s *Session) Follow(ctx context.Context, path string) error {
	if err := transcript.WriteFile(path, s.History.Current()); err != nil {
		return err
	}
	initial, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return NewFile(path, string(initial), s.Log).Run(ctx, func(text string) {
		// editors truncate before writing; a text without turns is never a useful state
		if len(transcript.Decode(text).Turns) == 0 {
			s.Log.Debug().Msg("ignoring edit without speaker turns")
			return
		}
		t := s.History.ApplyText(text)
		s.Log.Info().
			Int("turns", len(t.Turns)).
			Int("segments", t.SegmentCount()).
			Int("snapshots", s.History.Len()).
			Msg("applied external edit")
		if s.OnApply != nil {
			s.OnApply(t)
		}
	})
}
