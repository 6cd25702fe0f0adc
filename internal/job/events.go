package job

import (
	"time"

	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	EventTypeProgress EventType = "progress"
	EventTypeLog      EventType = "log"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Stream names the worker output a log line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Event is one message on a job's event stream. Result and Error events are
// terminal; exactly one of them ends every stream.
type Event struct {
	Type      EventType              `json:"type"`
	JobID     string                 `json:"jobId"`
	Timestamp time.Time              `json:"timestamp"`
	Percent   int                    `json:"percent,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Stream    Stream                 `json:"stream,omitempty"`
	Result    *transcript.Transcript `json:"result,omitempty"`
	Err       *Error                 `json:"-"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventTypeResult || e.Type == EventTypeError
}
