package model

import "time"

// RenderableInfo describes a demo renderable managed by the harness.
type RenderableInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NeedsTick   bool      `json:"needs_tick"`
	NeedsPaint  bool      `json:"needs_paint"`
	NeedsRender bool      `json:"needs_render"`
	Ticks       int64     `json:"ticks"`
	Paints      int64     `json:"paints"`
	Renders     int64     `json:"renders"`
	Unmounts    int64     `json:"unmounts"`
	AddedAt     time.Time `json:"added_at"`
}

// RenderableRequest is the body for creating or updating a demo renderable.
type RenderableRequest struct {
	Name        string `json:"name,omitempty"`
	NeedsTick   *bool  `json:"needs_tick,omitempty"`
	NeedsPaint  *bool  `json:"needs_paint,omitempty"`
	NeedsRender *bool  `json:"needs_render,omitempty"`
}

// JobState represents the lifecycle state of a queued job.
type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateDone      JobState = "DONE"
	JobStateFailed    JobState = "FAILED"
	JobStateCancelled JobState = "CANCELLED"
)

// IsTerminal returns true if the job left the queue.
func (s JobState) IsTerminal() bool {
	return s != JobStateQueued
}

// JobInfo describes a synthetic job queued through the harness.
type JobInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	State       JobState   `json:"state"`
	Steps       int        `json:"steps"`
	StepsRun    int        `json:"steps_run"`
	FailAt      int        `json:"fail_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	QueuedAt    time.Time  `json:"queued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobRequest is the body for queueing a synthetic job.
type JobRequest struct {
	Name       string  `json:"name,omitempty"`
	Steps      int     `json:"steps"`
	StepCostMS float64 `json:"step_cost_ms,omitempty"`
	FailAt     int     `json:"fail_at,omitempty"`
}

// Validate checks the job request.
func (r *JobRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Steps <= 0 {
		errs = append(errs, FieldError{Field: "steps", Message: "must be positive"})
	}
	if r.StepCostMS < 0 {
		errs = append(errs, FieldError{Field: "step_cost_ms", Message: "must not be negative"})
	}
	if r.FailAt < 0 || r.FailAt > r.Steps {
		errs = append(errs, FieldError{Field: "fail_at", Message: "must be between 0 and steps"})
	}
	return errs
}
