package model

import "time"

// CycleKind distinguishes frame cycles from idle (job) cycles.
type CycleKind string

const (
	CycleKindRender CycleKind = "render"
	CycleKindIdle   CycleKind = "idle"
)

// Valid reports whether k is a known cycle kind.
func (k CycleKind) Valid() bool {
	return k == CycleKindRender || k == CycleKindIdle
}

// CycleTrace records what one timing belt invocation did.
type CycleTrace struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Kind      CycleKind     `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Interval  time.Duration `json:"interval_ns"`
	State     BeltState     `json:"state"`

	// Frame cycles
	RateLimited     bool `json:"rate_limited,omitempty"`
	Renderables     int  `json:"renderables"`
	Visited         int  `json:"visited"`
	BudgetExhausted bool `json:"budget_exhausted,omitempty"`
	IdleScheduled   bool `json:"idle_scheduled,omitempty"`

	// Idle cycles
	Throttled   bool `json:"throttled,omitempty"`
	JobsStepped int  `json:"jobs_stepped"`

	MoreWork      bool   `json:"more_work"`
	JobsRemaining int    `json:"jobs_remaining"`
	Error         string `json:"error,omitempty"`
}

// Overran reports whether the cycle took longer than its interval.
func (c *CycleTrace) Overran() bool {
	return c.Interval > 0 && c.Duration > c.Interval
}

// Stats aggregates cycle traces for one scheduling session.
type Stats struct {
	SessionID         string        `json:"session_id"`
	RenderCycles      int64         `json:"render_cycles"`
	IdleCycles        int64         `json:"idle_cycles"`
	RateLimited       int64         `json:"rate_limited"`
	Throttled         int64         `json:"throttled"`
	BudgetExhausted   int64         `json:"budget_exhausted"`
	Overruns          int64         `json:"overruns"`
	JobSteps          int64         `json:"job_steps"`
	JobFailures       int64         `json:"job_failures"`
	AvgRenderDuration time.Duration `json:"avg_render_duration_ns"`
	MaxRenderDuration time.Duration `json:"max_render_duration_ns"`
	AvgIdleDuration   time.Duration `json:"avg_idle_duration_ns"`
	LastCycleAt       *time.Time    `json:"last_cycle_at,omitempty"`
	State             BeltState     `json:"state"`
	JobsRemaining     int           `json:"jobs_remaining"`
}

// Settings is the runtime-adjustable configuration of a timing belt.
type Settings struct {
	Interval           time.Duration `json:"interval_ns" yaml:"interval"`
	Governor           bool          `json:"governor" yaml:"governor"`
	BurstIdle          bool          `json:"burst_idle" yaml:"burst_idle"`
	MaxCyclesPerSecond int           `json:"max_cycles_per_second" yaml:"max_cycles_per_second"`
	Autorender         bool          `json:"autorender" yaml:"autorender"`
}

// SettingsPatch carries a partial Settings update; nil fields are left unchanged.
type SettingsPatch struct {
	IntervalMS         *float64 `json:"interval_ms,omitempty"`
	Governor           *bool    `json:"governor,omitempty"`
	BurstIdle          *bool    `json:"burst_idle,omitempty"`
	MaxCyclesPerSecond *int     `json:"max_cycles_per_second,omitempty"`
	Autorender         *bool    `json:"autorender,omitempty"`
}

// Validate checks the patch for values no belt setter would accept.
func (p *SettingsPatch) Validate() []FieldError {
	var errs []FieldError
	if p.IntervalMS != nil && *p.IntervalMS <= 0 {
		errs = append(errs, FieldError{Field: "interval_ms", Message: "must be positive"})
	}
	if p.MaxCyclesPerSecond != nil && *p.MaxCyclesPerSecond < 0 {
		errs = append(errs, FieldError{Field: "max_cycles_per_second", Message: "must not be negative"})
	}
	return errs
}

// Interval converts IntervalMS to a duration. It must only be called when
// IntervalMS is set.
func (p *SettingsPatch) Interval() time.Duration {
	return time.Duration(*p.IntervalMS * float64(time.Millisecond))
}
