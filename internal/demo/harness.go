// Package demo provides headless renderables and synthetic jobs for
// exercising a timing belt without a display.
//
// A Harness is not safe for concurrent use. Like the belt it wraps, it must
// only be called from the goroutine that drives the belt.
package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/me/timingbelt/pkg/belt"
	"github.com/me/timingbelt/pkg/model"
)

// ErrNotFound is returned for unknown renderable and job ids.
var ErrNotFound = errors.New("not found")

// ErrJobFinished is returned when cancelling a job that already left the queue.
var ErrJobFinished = errors.New("job already finished")

// maxFinishedJobs bounds how many terminal jobs are kept for inspection.
const maxFinishedJobs = 256

type jobEntry struct {
	info   model.JobInfo
	cost   time.Duration
	cancel belt.CancelFunc
}

// Harness manages id-addressed renderables and jobs on a timing belt.
type Harness struct {
	tb     *belt.TimingBelt
	logger *slog.Logger
	now    func() time.Time
	spend  func(time.Duration)

	renderables []*Renderable
	jobs        []*jobEntry
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) HarnessOption {
	return func(h *Harness) { h.now = now }
}

// WithSpend replaces the busy wait used to simulate callback and job costs.
func WithSpend(spend func(time.Duration)) HarnessOption {
	return func(h *Harness) { h.spend = spend }
}

// NewHarness wraps tb.
func NewHarness(tb *belt.TimingBelt, logger *slog.Logger, opts ...HarnessOption) *Harness {
	h := &Harness{
		tb:     tb,
		logger: logger.With("component", "harness"),
		now:    func() time.Time { return time.Now().UTC() },
		spend:  busyWait,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Belt returns the wrapped timing belt.
func (h *Harness) Belt() *belt.TimingBelt {
	return h.tb
}

// AddRenderable creates a renderable from spec and adds it to the belt.
func (h *Harness) AddRenderable(spec Spec) (model.RenderableInfo, error) {
	r, err := newRenderable(newID("rnd"), spec, h.now(), h.spend, h.logger)
	if err != nil {
		return model.RenderableInfo{}, err
	}
	if err := h.tb.AddRenderable(r); err != nil {
		return model.RenderableInfo{}, err
	}
	h.renderables = append(h.renderables, r)
	h.logger.Info("renderable added", "renderable", r.id, "name", r.name)
	return r.Info(), nil
}

// RemoveRenderable removes and unmounts the renderable with id and returns
// its final counters.
func (h *Harness) RemoveRenderable(id string) (model.RenderableInfo, error) {
	i := h.indexRenderable(id)
	if i < 0 {
		return model.RenderableInfo{}, fmt.Errorf("renderable %s: %w", id, ErrNotFound)
	}
	r := h.renderables[i]
	h.renderables = slices.Delete(h.renderables, i, i+1)
	h.tb.RemoveRenderable(r)
	h.logger.Info("renderable removed", "renderable", id, "renders", r.renders)
	return r.Info(), nil
}

// UpdateRenderable changes the flags set in req and requests a frame so the
// change is picked up.
func (h *Harness) UpdateRenderable(id string, req model.RenderableRequest) (model.RenderableInfo, error) {
	r, err := h.renderable(id)
	if err != nil {
		return model.RenderableInfo{}, err
	}
	r.apply(req)
	r.ScheduleUpdate()
	return r.Info(), nil
}

// ScheduleUpdate makes the renderable with id request a frame.
func (h *Harness) ScheduleUpdate(id string) error {
	r, err := h.renderable(id)
	if err != nil {
		return err
	}
	r.ScheduleUpdate()
	return nil
}

// Renderable returns a snapshot of the renderable with id.
func (h *Harness) Renderable(id string) (model.RenderableInfo, error) {
	r, err := h.renderable(id)
	if err != nil {
		return model.RenderableInfo{}, err
	}
	return r.Info(), nil
}

// Renderables returns snapshots in belt order.
func (h *Harness) Renderables() []model.RenderableInfo {
	out := make([]model.RenderableInfo, 0, len(h.renderables))
	for _, r := range h.renderables {
		out = append(out, r.Info())
	}
	return out
}

// QueueJob queues a synthetic job that runs req.Steps steps of
// req.StepCostMS each, failing at step req.FailAt when it is set.
func (h *Harness) QueueJob(req model.JobRequest) (model.JobInfo, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return model.JobInfo{}, fmt.Errorf("invalid job: %s %s", errs[0].Field, errs[0].Message)
	}
	e := &jobEntry{
		info: model.JobInfo{
			ID:       newID("job"),
			Name:     req.Name,
			State:    model.JobStateQueued,
			Steps:    req.Steps,
			FailAt:   req.FailAt,
			QueuedAt: h.now(),
		},
		cost: time.Duration(req.StepCostMS * float64(time.Millisecond)),
	}
	if e.info.Name == "" {
		e.info.Name = e.info.ID
	}
	h.jobs = append(h.jobs, e)
	e.cancel = h.tb.QueueNamedJob(e.info.Name, h.step(e))
	h.pruneJobs()
	h.logger.Debug("job queued", "job", e.info.ID, "steps", req.Steps)
	return e.info, nil
}

func (h *Harness) step(e *jobEntry) belt.Step {
	return func(time.Duration) (belt.Status, error) {
		e.info.StepsRun++
		if e.cost > 0 {
			h.spend(e.cost)
		}
		if e.info.FailAt > 0 && e.info.StepsRun == e.info.FailAt {
			err := fmt.Errorf("synthetic failure at step %d", e.info.StepsRun)
			h.finish(e, model.JobStateFailed, err.Error())
			return belt.Failed, err
		}
		if e.info.StepsRun < e.info.Steps {
			return belt.More, nil
		}
		h.finish(e, model.JobStateDone, "")
		return belt.Done, nil
	}
}

func (h *Harness) finish(e *jobEntry, state model.JobState, msg string) {
	now := h.now()
	e.info.State = state
	e.info.Error = msg
	e.info.CompletedAt = &now
}

// CancelJob removes a queued job.
func (h *Harness) CancelJob(id string) (model.JobInfo, error) {
	e := h.job(id)
	if e == nil {
		return model.JobInfo{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if e.info.State.IsTerminal() || !e.cancel() {
		return e.info, fmt.Errorf("job %s: %w", id, ErrJobFinished)
	}
	h.finish(e, model.JobStateCancelled, "")
	h.logger.Info("job cancelled", "job", id)
	return e.info, nil
}

// Job returns a snapshot of the job with id.
func (h *Harness) Job(id string) (model.JobInfo, error) {
	e := h.job(id)
	if e == nil {
		return model.JobInfo{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return e.info, nil
}

// Jobs returns snapshots in queue order, including recently finished jobs.
func (h *Harness) Jobs() []model.JobInfo {
	out := make([]model.JobInfo, 0, len(h.jobs))
	for _, e := range h.jobs {
		out = append(out, e.info)
	}
	return out
}

// pruneJobs drops the oldest finished jobs beyond maxFinishedJobs.
func (h *Harness) pruneJobs() {
	finished := 0
	for _, e := range h.jobs {
		if e.info.State.IsTerminal() {
			finished++
		}
	}
	for i := 0; finished > maxFinishedJobs && i < len(h.jobs); {
		if h.jobs[i].info.State.IsTerminal() {
			h.jobs = slices.Delete(h.jobs, i, i+1)
			finished--
			continue
		}
		i++
	}
}

func (h *Harness) renderable(id string) (*Renderable, error) {
	i := h.indexRenderable(id)
	if i < 0 {
		return nil, fmt.Errorf("renderable %s: %w", id, ErrNotFound)
	}
	return h.renderables[i], nil
}

func (h *Harness) indexRenderable(id string) int {
	return slices.IndexFunc(h.renderables, func(r *Renderable) bool { return r.id == id })
}

func (h *Harness) job(id string) *jobEntry {
	i := slices.IndexFunc(h.jobs, func(e *jobEntry) bool { return e.info.ID == id })
	if i < 0 {
		return nil
	}
	return h.jobs[i]
}

func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}
