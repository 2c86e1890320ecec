package belt

import (
	"log/slog"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// TimingBelt alternates a RenderBelt and a JobBelt on a frame timer and an
// idle timer. It is the only component that arms either timer.
type TimingBelt struct {
	render     *RenderBelt
	idle       *JobBelt
	frameTimer Timer
	idleTimer  Timer
	clock      Clock
	logger     *slog.Logger
	observer   Observer
	onError    func(error)
	session    string

	maxCycles  int
	autorender bool
	state      model.BeltState
	lastStart  time.Time
	ranBefore  bool
}

// New creates a timing belt driven by frame and idle. It installs itself as
// the listener of both timers and of both belts' update signals.
func New(frame, idle Timer, opts ...Option) (*TimingBelt, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	tb := &TimingBelt{
		render:     newRenderBelt(o),
		idle:       newJobBelt(o),
		frameTimer: frame,
		idleTimer:  idle,
		clock:      o.clock,
		logger:     o.logger.With("component", "timing-belt", "session_id", o.session),
		observer:   o.observer,
		onError:    o.onError,
		session:    o.session,
		state:      model.BeltStateIdle,
	}
	if tb.onError == nil {
		tb.onError = func(err error) {
			tb.logger.Error("idle cycle failed", "error", err)
		}
	}

	tb.render.SetOnScheduleUpdate(tb.ScheduleUpdate)
	tb.idle.SetOnScheduleUpdate(tb.ScheduleUpdate)
	frame.SetListener(tb.Cycle)
	idle.SetListener(tb.runIdle)
	return tb, nil
}

// RenderBelt returns the owned render belt.
func (tb *TimingBelt) RenderBelt() *RenderBelt {
	return tb.render
}

// JobBelt returns the owned idle job belt.
func (tb *TimingBelt) JobBelt() *JobBelt {
	return tb.idle
}

// SessionID identifies this belt in traces and logs.
func (tb *TimingBelt) SessionID() string {
	return tb.session
}

// State returns where the belt is in its frame cycle.
func (tb *TimingBelt) State() model.BeltState {
	return tb.state
}

// AddRenderable adds r to the render belt.
func (tb *TimingBelt) AddRenderable(r Renderable) error {
	return tb.render.AddRenderable(r)
}

// RemoveRenderable removes r from the render belt.
func (tb *TimingBelt) RemoveRenderable(r Renderable) bool {
	return tb.render.RemoveRenderable(r)
}

// QueueJob queues an idle job.
func (tb *TimingBelt) QueueJob(step Step) CancelFunc {
	return tb.idle.QueueJob(step)
}

// QueueNamedJob queues an idle job under name.
func (tb *TimingBelt) QueueNamedJob(name string, step Step) CancelFunc {
	return tb.idle.QueueNamedJob(name, step)
}

// HasIdleJobs reports whether idle jobs are queued.
func (tb *TimingBelt) HasIdleJobs() bool {
	return tb.idle.HasJobs()
}

// SetBurstIdle sets burst mode on the job belt.
func (tb *TimingBelt) SetBurstIdle(burst bool) {
	tb.idle.SetBurst(burst)
}

// SetGovernor sets the job belt governor.
func (tb *TimingBelt) SetGovernor(governor bool) {
	tb.idle.SetGovernor(governor)
}

// Interval returns the frame budget.
func (tb *TimingBelt) Interval() time.Duration {
	return tb.render.Interval()
}

// SetInterval changes the budget of both belts.
func (tb *TimingBelt) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	tb.render.SetInterval(d)
	tb.idle.SetInterval(d)
	return nil
}

// MaxCyclesPerSecond returns the frame-rate cap, 0 when unlimited.
func (tb *TimingBelt) MaxCyclesPerSecond() int {
	return tb.maxCycles
}

// SetMaxCyclesPerSecond caps how often Cycle does any work. 0 disables the cap.
func (tb *TimingBelt) SetMaxCyclesPerSecond(n int) error {
	if n < 0 {
		return ErrInvalidMaxCycles
	}
	tb.maxCycles = n
	return nil
}

// Autorender reports whether every frame requests the next one.
func (tb *TimingBelt) Autorender() bool {
	return tb.autorender
}

// SetAutorender turns continuous rendering on or off. Turning it on
// requests a frame right away.
func (tb *TimingBelt) SetAutorender(enabled bool) {
	tb.autorender = enabled
	if enabled {
		tb.ScheduleUpdate()
	}
}

// Settings returns the current runtime configuration.
func (tb *TimingBelt) Settings() model.Settings {
	return model.Settings{
		Interval:           tb.Interval(),
		Governor:           tb.idle.Governor(),
		BurstIdle:          tb.idle.Burst(),
		MaxCyclesPerSecond: tb.maxCycles,
		Autorender:         tb.autorender,
	}
}

// ScheduleUpdate asks the frame timer for a future Cycle.
func (tb *TimingBelt) ScheduleUpdate() {
	tb.logger.Debug("scheduling update")
	tb.frameTimer.Schedule()
}

// ScheduleIdle asks the idle timer for a future Idle.
func (tb *TimingBelt) ScheduleIdle() {
	tb.idleTimer.Schedule()
}

// Cycle runs one frame. Unfinished rendering, or autorender, re-arms the
// frame timer and defers idle work; otherwise pending jobs arm the idle timer.
func (tb *TimingBelt) Cycle() {
	start := tb.clock.Now()
	trace := model.CycleTrace{
		Kind:      model.CycleKindRender,
		StartedAt: start,
		Interval:  tb.Interval(),
	}

	if tb.rateLimited(start) {
		tb.logger.Debug("frame skipped by rate limit", "max_cycles_per_second", tb.maxCycles)
		tb.transition(model.BeltStateAwaitingFrame)
		tb.ScheduleUpdate()
		trace.RateLimited = true
		trace.MoreWork = true
		tb.emit(&trace, start)
		return
	}
	tb.lastStart = start
	tb.ranBefore = true

	tb.transition(model.BeltStateRendering)
	more := tb.render.Cycle()
	trace.Renderables = tb.render.Len()
	trace.Visited = tb.render.VisitedLastCycle()
	trace.BudgetExhausted = tb.render.ExhaustedLastCycle()
	trace.MoreWork = more

	switch {
	case more || tb.autorender:
		tb.transition(model.BeltStateAwaitingFrame)
		tb.ScheduleUpdate()
	case tb.idle.HasJobs():
		tb.transition(model.BeltStateIdleScheduled)
		tb.ScheduleIdle()
		trace.IdleScheduled = true
	default:
		tb.transition(model.BeltStateIdle)
	}
	tb.emit(&trace, start)
}

// Idle runs one job belt cycle. If jobs remain it requests another frame,
// whose cycle arms the idle timer again once rendering is done.
func (tb *TimingBelt) Idle() error {
	start := tb.clock.Now()
	tb.transition(model.BeltStateRunningJobs)
	more, err := tb.idle.Cycle()

	trace := model.CycleTrace{
		Kind:        model.CycleKindIdle,
		StartedAt:   start,
		Interval:    tb.idle.Interval(),
		Throttled:   tb.idle.ThrottledLastCycle(),
		JobsStepped: tb.idle.StepsLastCycle(),
		MoreWork:    more,
	}
	if err != nil {
		// The job belt already requested an update for the remaining jobs.
		tb.transition(model.BeltStateAwaitingFrame)
		trace.Error = err.Error()
		tb.emit(&trace, start)
		return err
	}
	if more {
		tb.transition(model.BeltStateAwaitingFrame)
		tb.ScheduleUpdate()
	} else {
		tb.transition(model.BeltStateIdle)
	}
	tb.emit(&trace, start)
	return nil
}

func (tb *TimingBelt) runIdle() {
	if err := tb.Idle(); err != nil {
		tb.onError(err)
	}
}

func (tb *TimingBelt) rateLimited(now time.Time) bool {
	if tb.maxCycles <= 0 || !tb.ranBefore {
		return false
	}
	return now.Sub(tb.lastStart) < time.Second/time.Duration(tb.maxCycles)
}

func (tb *TimingBelt) transition(next model.BeltState) {
	if !tb.state.CanTransitionTo(next) {
		tb.logger.Warn("unexpected state transition",
			"error", &model.InvalidTransitionError{From: tb.state, To: next})
	}
	tb.state = next
}

func (tb *TimingBelt) emit(trace *model.CycleTrace, start time.Time) {
	if tb.observer == nil {
		return
	}
	trace.ID = newID("cyc")
	trace.SessionID = tb.session
	trace.Duration = tb.clock.Since(start)
	trace.State = tb.state
	trace.JobsRemaining = tb.idle.Len()
	tb.observer(*trace)
}
