package job

// State is the lifecycle position of a transcription job.
type State string

const (
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateAwaitingResult State = "awaiting_result"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// validTransition enforces the allowed job state machine edges.
func validTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateFailed
	case StateRunning:
		return to == StateAwaitingResult || to == StateFailed
	case StateAwaitingResult:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}
