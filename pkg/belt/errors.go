package belt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned for a zero or negative interval.
	ErrInvalidInterval = errors.New("belt: interval must be positive")

	// ErrInvalidMaxCycles is returned for a negative cycles-per-second limit.
	ErrInvalidMaxCycles = errors.New("belt: max cycles per second must not be negative")

	// ErrNilRenderable is returned when adding a nil renderable.
	ErrNilRenderable = errors.New("belt: renderable is nil")

	// ErrDuplicateRenderable is returned when a renderable is already on the belt.
	ErrDuplicateRenderable = errors.New("belt: renderable already added")

	// ErrJobFailed is reported for a step that returned Failed without an error.
	ErrJobFailed = errors.New("belt: job step failed")

	// ErrJobPanicked wraps the value recovered from a panicking job step.
	ErrJobPanicked = errors.New("belt: job step panicked")
)

// JobError is returned by JobBelt.Cycle when a job step fails. The job has
// already been removed from the queue.
type JobError struct {
	Job string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
