package demo

import (
	"log/slog"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// Costs simulates work done in each renderable callback.
type Costs struct {
	Tick   time.Duration `yaml:"tick"`
	Paint  time.Duration `yaml:"paint"`
	Render time.Duration `yaml:"render"`
}

// Exprs override the static flags with JavaScript conditions.
type Exprs struct {
	Tick   string `yaml:"tick"`
	Paint  string `yaml:"paint"`
	Render string `yaml:"render"`
}

// Spec describes a renderable to create.
type Spec struct {
	Name        string `yaml:"name"`
	NeedsTick   bool   `yaml:"needs_tick"`
	NeedsPaint  bool   `yaml:"needs_paint"`
	NeedsRender bool   `yaml:"needs_render"`
	Costs       Costs  `yaml:"costs"`
	Exprs       Exprs  `yaml:"exprs"`
}

// Renderable is a headless stand-in for an on-screen component. Each
// callback bumps a counter, spends its configured cost and reports the
// matching flag, or the result of the matching expression when one is set.
type Renderable struct {
	id      string
	name    string
	addedAt time.Time
	logger  *slog.Logger
	spend   func(time.Duration)

	needsTick, needsPaint, needsRender bool
	costs                              Costs
	tickExpr, paintExpr, renderExpr    *Expr
	env                                *exprEnv

	ticks, paints, renders, unmounts int64
	lastTimeout                      time.Duration
	listener                         func()
}

func newRenderable(id string, spec Spec, now time.Time, spend func(time.Duration), logger *slog.Logger) (*Renderable, error) {
	r := &Renderable{
		id:          id,
		name:        spec.Name,
		addedAt:     now,
		logger:      logger,
		spend:       spend,
		needsTick:   spec.NeedsTick,
		needsPaint:  spec.NeedsPaint,
		needsRender: spec.NeedsRender,
		costs:       spec.Costs,
	}
	if r.name == "" {
		r.name = id
	}
	var err error
	if r.tickExpr, err = CompileExpr(spec.Exprs.Tick); err != nil {
		return nil, err
	}
	if r.paintExpr, err = CompileExpr(spec.Exprs.Paint); err != nil {
		return nil, err
	}
	if r.renderExpr, err = CompileExpr(spec.Exprs.Render); err != nil {
		return nil, err
	}
	if r.tickExpr != nil || r.paintExpr != nil || r.renderExpr != nil {
		r.env = newExprEnv()
	}
	return r, nil
}

// ID returns the harness id.
func (r *Renderable) ID() string { return r.id }

// Tick implements belt.Renderable.
func (r *Renderable) Tick(time.Time) bool {
	r.ticks++
	r.work(r.costs.Tick)
	return r.decide(r.tickExpr, r.needsTick)
}

// Paint implements belt.Renderable.
func (r *Renderable) Paint(timeout time.Duration) bool {
	r.paints++
	r.lastTimeout = timeout
	r.work(r.costs.Paint)
	return r.decide(r.paintExpr, r.needsPaint)
}

// Render implements belt.Renderable.
func (r *Renderable) Render() bool {
	r.renders++
	r.work(r.costs.Render)
	return r.decide(r.renderExpr, r.needsRender)
}

// Unmount implements belt.Renderable.
func (r *Renderable) Unmount() {
	r.unmounts++
}

// SetOnScheduleUpdate implements belt.Renderable.
func (r *Renderable) SetOnScheduleUpdate(fn func()) {
	r.listener = fn
}

// ScheduleUpdate asks the owning belt for another frame.
func (r *Renderable) ScheduleUpdate() bool {
	if r.listener == nil {
		return false
	}
	r.listener()
	return true
}

// Info returns a snapshot of the renderable.
func (r *Renderable) Info() model.RenderableInfo {
	return model.RenderableInfo{
		ID:          r.id,
		Name:        r.name,
		NeedsTick:   r.needsTick,
		NeedsPaint:  r.needsPaint,
		NeedsRender: r.needsRender,
		Ticks:       r.ticks,
		Paints:      r.paints,
		Renders:     r.renders,
		Unmounts:    r.unmounts,
		AddedAt:     r.addedAt,
	}
}

// apply updates the flags present in req.
func (r *Renderable) apply(req model.RenderableRequest) {
	if req.Name != "" {
		r.name = req.Name
	}
	if req.NeedsTick != nil {
		r.needsTick = *req.NeedsTick
	}
	if req.NeedsPaint != nil {
		r.needsPaint = *req.NeedsPaint
	}
	if req.NeedsRender != nil {
		r.needsRender = *req.NeedsRender
	}
}

func (r *Renderable) work(d time.Duration) {
	if d > 0 && r.spend != nil {
		r.spend(d)
	}
}

func (r *Renderable) decide(e *Expr, flag bool) bool {
	if e == nil {
		return flag
	}
	ok, err := r.env.eval(e, map[string]any{
		"ticks":      r.ticks,
		"paints":     r.paints,
		"renders":    r.renders,
		"timeout_ms": float64(r.lastTimeout) / float64(time.Millisecond),
		"name":       r.name,
	})
	if err != nil {
		r.logger.Warn("renderable expression failed, using flag", "renderable", r.id, "error", err)
		return flag
	}
	return ok
}

// busyWait spins until d has passed. Simulated costs must consume wall
// time on the loop goroutine the way real painting would.
func busyWait(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
