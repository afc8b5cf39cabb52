package orchestrator

import (
	"errors"
	"fmt"
)

// Status is the outcome classification of a deployment run.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Message renders the single line shown to the user at the end of a run.
func (s Status) Message() string {
	switch s {
	case StatusFailed:
		return "Deployment failed"
	case StatusSuccess:
		return "Completed deployment successfully"
	default:
		return "There is nothing to commit. Exiting early"
	}
}

// ErrInvalidTransition is returned when a status change would leave a
// terminal state or move back to running.
var ErrInvalidTransition = errors.New("invalid deployment status transition")

// Tracker holds the status of one run. The zero value is running.
type Tracker struct {
	status Status
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	if t.status == "" {
		return StatusRunning
	}
	return t.status
}

// Resolve moves the run to a terminal status. Only the first call succeeds.
func (t *Tracker) Resolve(to Status) error {
	from := t.Status()
	if from.Terminal() || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t.status = to
	return nil
}
