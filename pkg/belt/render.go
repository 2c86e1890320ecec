package belt

import (
	"log/slog"
	"slices"
	"time"
)

// RenderBelt ticks, paints and renders its renderables once per cycle,
// starting from a random renderable each time so that, over many frames,
// none is consistently the one left out when the budget runs out.
//
// Adding or removing renderables from inside a Tick, Paint or Render call
// is not supported.
type RenderBelt struct {
	budget      *Budget
	logger      *slog.Logger
	update      Signal
	intn        func(n int) int
	renderables []Renderable

	lastStart   time.Time
	paintBudget time.Duration
	visited     int
	exhausted   bool
}

// NewRenderBelt creates an empty render belt.
func NewRenderBelt(opts ...Option) (*RenderBelt, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return newRenderBelt(o), nil
}

func newRenderBelt(o options) *RenderBelt {
	return &RenderBelt{
		budget: NewBudget(o.clock, o.interval),
		logger: o.logger.With("component", "render-belt"),
		intn:   o.intn,
	}
}

// SetOnScheduleUpdate installs the listener notified when the belt, or any
// of its renderables, wants another cycle.
func (b *RenderBelt) SetOnScheduleUpdate(fn func()) {
	b.update.Set(fn)
}

// ScheduleUpdate notifies the update listener.
func (b *RenderBelt) ScheduleUpdate() {
	b.update.Emit()
}

// Interval returns the per-frame budget.
func (b *RenderBelt) Interval() time.Duration {
	return b.budget.Interval()
}

// SetInterval changes the per-frame budget.
func (b *RenderBelt) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	b.budget.SetInterval(d)
	return nil
}

// AddRenderable appends r, subscribes to its update requests and requests
// an update.
func (b *RenderBelt) AddRenderable(r Renderable) error {
	if r == nil {
		return ErrNilRenderable
	}
	if slices.Contains(b.renderables, r) {
		return ErrDuplicateRenderable
	}
	b.renderables = append(b.renderables, r)
	r.SetOnScheduleUpdate(b.ScheduleUpdate)
	b.logger.Debug("renderable added", "renderables", len(b.renderables))
	b.ScheduleUpdate()
	return nil
}

// RemoveRenderable detaches and unmounts r. It reports whether r was on the belt.
func (b *RenderBelt) RemoveRenderable(r Renderable) bool {
	i := slices.Index(b.renderables, r)
	if i < 0 {
		return false
	}
	b.renderables = slices.Delete(b.renderables, i, i+1)
	r.SetOnScheduleUpdate(nil)
	r.Unmount()
	b.logger.Debug("renderable removed", "renderables", len(b.renderables))
	b.ScheduleUpdate()
	return true
}

// Len returns the number of renderables.
func (b *RenderBelt) Len() int {
	return len(b.renderables)
}

// LastCycleStart returns the start of the cycle before the most recent one.
// ok is false until two cycles have run.
func (b *RenderBelt) LastCycleStart() (t time.Time, ok bool) {
	return b.lastStart, !b.lastStart.IsZero()
}

// PaintBudget returns the per-renderable paint timeout of the last cycle.
func (b *RenderBelt) PaintBudget() time.Duration {
	return b.paintBudget
}

// VisitedLastCycle returns how many renderables were both painted and
// rendered in the last cycle.
func (b *RenderBelt) VisitedLastCycle() int {
	return b.visited
}

// ExhaustedLastCycle reports whether the last cycle stopped early because
// the budget ran out.
func (b *RenderBelt) ExhaustedLastCycle() bool {
	return b.exhausted
}

// Cycle runs one frame and reports whether another frame is needed: the
// budget ran out before every renderable was serviced, a renderable reported
// unfinished paint or render work, or a tick changed the scene.
func (b *RenderBelt) Cycle() bool {
	b.visited = 0
	b.exhausted = false
	n := len(b.renderables)
	if n == 0 {
		return false
	}

	if b.budget.Started() {
		b.lastStart = b.budget.StartedAt()
	}
	b.budget.Start()
	// The even split is fixed for the whole cycle; time saved by early
	// renderables is not handed on to later ones.
	b.paintBudget = max(0, b.budget.Remaining()/time.Duration(n))

	changed := b.runTicks()
	offset := b.intn(n)
	if changed {
		b.renderAndPaint(offset)
		return true
	}
	return b.paintAndRender(offset)
}

func (b *RenderBelt) runTicks() bool {
	changed := false
	start := b.budget.StartedAt()
	for _, r := range b.renderables {
		changed = r.Tick(start) || changed
	}
	b.logger.Debug("ticks complete", "input_changed_scene", changed)
	return changed
}

func (b *RenderBelt) paintAndRender(offset int) bool {
	needsUpdate := false
	n := len(b.renderables)
	for i := 0; i < n; i++ {
		r := b.renderables[(offset+i)%n]
		if b.budget.HasElapsed() {
			return b.stopEarly()
		}
		needsUpdate = r.Paint(b.paintBudget) || needsUpdate
		if b.budget.HasElapsed() {
			return b.stopEarly()
		}
		needsUpdate = r.Render() || needsUpdate
		b.visited++
	}
	b.logger.Debug("paint and render complete", "needs_update", needsUpdate)
	return needsUpdate
}

func (b *RenderBelt) renderAndPaint(offset int) bool {
	needsUpdate := false
	n := len(b.renderables)
	for i := 0; i < n; i++ {
		r := b.renderables[(offset+i)%n]
		needsUpdate = r.Render() || needsUpdate
		if b.budget.HasElapsed() {
			return b.stopEarly()
		}
		needsUpdate = r.Paint(b.paintBudget) || needsUpdate
		b.visited++
	}
	b.logger.Debug("render and paint complete", "needs_update", needsUpdate)
	return needsUpdate
}

func (b *RenderBelt) stopEarly() bool {
	b.exhausted = true
	b.logger.Debug("frame budget exhausted",
		"visited", b.visited, "renderables", len(b.renderables), "elapsed", b.budget.Elapsed())
	return true
}
