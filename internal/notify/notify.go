package notify

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/diarscribe/internal/job"
)

const appName = "diarscribe"

type Notifier interface {
	Notify(title, message string)
	Error(msg string)
}

// New returns the notifier for a notifications.type value.
func New(kind string, log zerolog.Logger) Notifier {
	switch kind {
	case "desktop":
		return Desktop{Log: log}
	case "log":
		return Log{Logger: log}
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send.
type Desktop struct {
	Log zerolog.Logger
	// Run executes the command; nil means exec.Command(...).Run.
	Run func(name string, args ...string) error
}

func (d Desktop) run(args ...string) {
	run := d.Run
	if run == nil {
		run = func(name string, args ...string) error { return exec.Command(name, args...).Run() }
	}
	if err := run("notify-send", args...); err != nil {
		d.Log.Warn().Err(err).Msg("failed to send notification")
	}
}

func (d Desktop) Notify(title, message string) {
	d.run("-a", appName, title, message)
}

func (d Desktop) Error(msg string) {
	d.run("-a", appName, "-u", "critical", appName+": error", msg)
}

// Log writes notifications to the structured log.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(title, message string) {
	l.Logger.Info().Str("title", title).Msg(message)
}

func (l Log) Error(msg string) {
	l.Logger.Error().Msg(msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Notify(title, message string) {}
func (Nop) Error(msg string)             {}

// JobOutcome announces the terminal outcome of a transcription of source.
func JobOutcome(n Notifier, source string, turns int, err error) {
	name := filepath.Base(source)
	switch {
	case err == nil:
		n.Notify("Transcription finished", fmt.Sprintf("%s: %d speaker turns", name, turns))
	case errors.Is(err, job.ErrCancelled):
		n.Notify("Transcription cancelled", name)
	default:
		n.Error(fmt.Sprintf("Transcription of %s failed (%s)", name, job.KindOf(err)))
	}
}
