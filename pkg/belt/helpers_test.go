package belt

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time                  { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c *fakeClock) Advance(d time.Duration)         { c.now = c.now.Add(d) }

// fakeTimer records Schedule calls and fires only when told to.
type fakeTimer struct {
	listener  func()
	armed     bool
	schedules int
}

func (t *fakeTimer) SetListener(fn func()) { t.listener = fn }

func (t *fakeTimer) Schedule() {
	t.schedules++
	t.armed = true
}

// fire invokes the listener if the timer is armed.
func (t *fakeTimer) fire() bool {
	if !t.armed {
		return false
	}
	t.armed = false
	t.listener()
	return true
}

// stubRenderable returns fixed results and records every call.
type stubRenderable struct {
	name string
	log  *[]string

	tickResult   bool
	paintResult  bool
	renderResult bool

	ticks, paints, renders, unmounts int
	paintTimeouts                    []time.Duration
	tickStarts                       []time.Time

	onPaint  func()
	onRender func()
	listener func()
}

func (r *stubRenderable) record(op string) {
	if r.log != nil {
		*r.log = append(*r.log, op+":"+r.name)
	}
}

func (r *stubRenderable) Tick(cycleStart time.Time) bool {
	r.ticks++
	r.tickStarts = append(r.tickStarts, cycleStart)
	r.record("tick")
	return r.tickResult
}

func (r *stubRenderable) Paint(timeout time.Duration) bool {
	r.paints++
	r.paintTimeouts = append(r.paintTimeouts, timeout)
	r.record("paint")
	if r.onPaint != nil {
		r.onPaint()
	}
	return r.paintResult
}

func (r *stubRenderable) Render() bool {
	r.renders++
	r.record("render")
	if r.onRender != nil {
		r.onRender()
	}
	return r.renderResult
}

func (r *stubRenderable) Unmount() {
	r.unmounts++
	r.record("unmount")
}

func (r *stubRenderable) SetOnScheduleUpdate(fn func()) {
	r.listener = fn
}

// newStubs creates n renderables named a, b, c... sharing one call log.
func newStubs(n int, log *[]string) []*stubRenderable {
	out := make([]*stubRenderable, n)
	for i := range out {
		out[i] = &stubRenderable{name: string(rune('a' + i)), log: log}
	}
	return out
}

// fixedOffset makes the render rotation start at off.
func fixedOffset(off int) Option {
	return WithRand(func(n int) int { return off % n })
}

func mustRenderBelt(t *testing.T, opts ...Option) *RenderBelt {
	t.Helper()
	b, err := NewRenderBelt(opts...)
	if err != nil {
		t.Fatalf("NewRenderBelt: %v", err)
	}
	return b
}

func mustJobBelt(t *testing.T, opts ...Option) *JobBelt {
	t.Helper()
	b, err := NewJobBelt(opts...)
	if err != nil {
		t.Fatalf("NewJobBelt: %v", err)
	}
	return b
}

// doneStep finishes in one step and counts its runs.
func doneStep(runs *int) Step {
	return func(time.Duration) (Status, error) {
		*runs++
		return Done, nil
	}
}

// moreStep never finishes.
func moreStep(runs *int) Step {
	return func(time.Duration) (Status, error) {
		*runs++
		return More, nil
	}
}
