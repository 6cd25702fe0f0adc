package job

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal job failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindEnvironmentNotReady Kind = "environment_not_ready"
	KindWorkerFailed        Kind = "worker_failed"
	KindResultMissing       Kind = "result_missing"
	KindResultCorrupt       Kind = "result_corrupt"
	KindCancelled           Kind = "cancelled"
)

// Sentinels for errors.Is against a job error's kind.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEnvironmentNotReady = errors.New("environment not ready")
	ErrWorkerFailed        = errors.New("worker failed")
	ErrResultMissing       = errors.New("result missing")
	ErrResultCorrupt       = errors.New("result corrupt")
	ErrCancelled           = errors.New("cancelled")
)

// Orchestrator call errors that are not job outcomes.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
	ErrJobActive   = errors.New("job still active")
)

var kindSentinels = map[Kind]error{
	KindInvalidInput:        ErrInvalidInput,
	KindEnvironmentNotReady: ErrEnvironmentNotReady,
	KindWorkerFailed:        ErrWorkerFailed,
	KindResultMissing:       ErrResultMissing,
	KindResultCorrupt:       ErrResultCorrupt,
	KindCancelled:           ErrCancelled,
}

// Error is the terminal failure of one job.
type Error struct {
	Kind    Kind
	JobID   string
	Message string
	// ExitCode is the worker exit status; meaningful for KindWorkerFailed.
	ExitCode int
	Err      error
}

func newError(kind Kind, jobID, message string, err error) *Error {
	return &Error{Kind: kind, JobID: jobID, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("job %s: %s", e.JobID, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of a job error, or "" if err is not one.
func KindOf(err error) Kind {
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return ""
}
