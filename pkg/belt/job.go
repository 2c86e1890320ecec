package belt

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Status is what a job step reports about the job after running.
type Status int

const (
	// Done means the job finished and leaves the queue.
	Done Status = iota
	// More means the job has work left and stays at the front of the queue.
	More
	// Failed means the job failed; it leaves the queue and the failure is
	// returned to the caller of Cycle.
	Failed
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case More:
		return "more"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Step runs one slice of a job. remaining is the time left in the current
// cycle and may be zero or negative. Any status other than More or Failed
// counts as Done. A non-nil error always counts as a failure.
type Step func(remaining time.Duration) (Status, error)

// CancelFunc removes a queued job. It reports whether the job was still
// queued; calling it after the job completed is a no-op.
type CancelFunc func() bool

type job struct {
	name string
	step Step
}

// run invokes the step once, turning a Failed status or a panic into an error.
func (j *job) run(remaining time.Duration) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, err = Failed, fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	status, err = j.step(remaining)
	if err == nil && status == Failed {
		err = ErrJobFailed
	}
	return status, err
}

// JobBelt runs queued jobs in FIFO order, one step per cycle or, in burst
// mode, as many steps as the budget allows.
type JobBelt struct {
	budget   *Budget
	clock    Clock
	logger   *slog.Logger
	update   Signal
	governor bool
	burst    bool
	jobs     []*job

	lastStart time.Time
	ranBefore bool
	lastSteps int
	throttled bool
}

// NewJobBelt creates an empty job belt with the governor on and burst off.
func NewJobBelt(opts ...Option) (*JobBelt, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return newJobBelt(o), nil
}

func newJobBelt(o options) *JobBelt {
	return &JobBelt{
		budget:   NewBudget(o.clock, o.interval),
		clock:    o.clock,
		logger:   o.logger.With("component", "job-belt"),
		governor: DefaultGovernor,
		burst:    DefaultBurstIdle,
	}
}

// SetOnScheduleUpdate installs the listener notified when the belt wants
// another cycle.
func (b *JobBelt) SetOnScheduleUpdate(fn func()) {
	b.update.Set(fn)
}

// ScheduleUpdate notifies the update listener.
func (b *JobBelt) ScheduleUpdate() {
	b.update.Emit()
}

// SetGovernor sets whether cycles are limited to one per interval.
func (b *JobBelt) SetGovernor(governor bool) {
	b.governor = governor
}

// Governor reports whether the governor is on.
func (b *JobBelt) Governor() bool {
	return b.governor
}

// SetBurst sets whether a cycle keeps running job steps while budget remains.
func (b *JobBelt) SetBurst(burst bool) {
	b.burst = burst
}

// Burst reports whether burst mode is on.
func (b *JobBelt) Burst() bool {
	return b.burst
}

// Interval returns the per-cycle budget.
func (b *JobBelt) Interval() time.Duration {
	return b.budget.Interval()
}

// SetInterval changes the per-cycle budget and the governor period.
func (b *JobBelt) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	b.budget.SetInterval(d)
	return nil
}

// QueueJob appends a job with a generated name. See QueueNamedJob.
func (b *JobBelt) QueueJob(step Step) CancelFunc {
	return b.QueueNamedJob(newID("job"), step)
}

// QueueNamedJob appends a job to the tail of the queue and requests an
// update so a driver learns there is work. name appears in logs and in any
// JobError the job produces.
func (b *JobBelt) QueueNamedJob(name string, step Step) CancelFunc {
	j := &job{name: name, step: step}
	b.jobs = append(b.jobs, j)
	b.logger.Debug("job queued", "job", name, "queued", len(b.jobs))
	b.ScheduleUpdate()
	return func() bool {
		if !b.remove(j) {
			return false
		}
		b.logger.Debug("job cancelled", "job", name)
		return true
	}
}

// HasJobs reports whether any job is queued.
func (b *JobBelt) HasJobs() bool {
	return len(b.jobs) > 0
}

// Len returns the number of queued jobs.
func (b *JobBelt) Len() int {
	return len(b.jobs)
}

// StepsLastCycle returns how many job steps the last Cycle ran.
func (b *JobBelt) StepsLastCycle() int {
	return b.lastSteps
}

// ThrottledLastCycle reports whether the governor suppressed the last Cycle.
func (b *JobBelt) ThrottledLastCycle() bool {
	return b.throttled
}

// Cycle runs queued work and reports whether jobs remain. A failing step
// is removed from the queue and its failure returned as a *JobError.
func (b *JobBelt) Cycle() (bool, error) {
	b.lastSteps = 0
	b.throttled = false
	if !b.HasJobs() {
		return false, nil
	}

	b.budget.Start()
	if b.isThrottled() {
		b.throttled = true
		b.logger.Debug("cycle suppressed because the last cycle was too recent",
			"since_last", b.clock.Since(b.lastStart), "interval", b.budget.Interval())
		return true, nil
	}

	for {
		j := b.jobs[0]
		status, err := j.run(b.budget.Remaining())
		b.lastSteps++
		if err != nil {
			b.remove(j)
			b.ScheduleUpdate()
			b.logger.Warn("job failed", "job", j.name, "error", err)
			return false, &JobError{Job: j.name, Err: err}
		}
		if status == More {
			b.logger.Debug("job not yet complete", "job", j.name)
			b.ScheduleUpdate()
		} else {
			b.logger.Debug("job complete", "job", j.name)
			b.remove(j)
		}
		if !b.burst || b.budget.HasElapsed() || !b.HasJobs() {
			break
		}
	}

	b.lastStart = b.budget.StartedAt()
	b.ranBefore = true
	return b.HasJobs(), nil
}

func (b *JobBelt) isThrottled() bool {
	return b.governor && b.ranBefore && b.clock.Since(b.lastStart) < b.budget.Interval()
}

// remove drops j from the queue by identity.
func (b *JobBelt) remove(j *job) bool {
	i := slices.Index(b.jobs, j)
	if i < 0 {
		return false
	}
	b.jobs = slices.Delete(b.jobs, i, i+1)
	return true
}
