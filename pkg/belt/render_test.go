package belt

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestRenderBelt_EmptyCycleIsNoop(t *testing.T) {
	b := mustRenderBelt(t, WithClock(newFakeClock()))
	updates := 0
	b.SetOnScheduleUpdate(func() { updates++ })

	if b.Cycle() {
		t.Error("Cycle() on empty belt = true, want false")
	}
	if b.budget.Started() {
		t.Error("empty cycle should not start the budget")
	}
	if updates != 0 {
		t.Errorf("updates = %d, want 0", updates)
	}
}

func TestRenderBelt_AllFinishedCompletesOneRotation(t *testing.T) {
	var log []string
	b := mustRenderBelt(t, WithClock(newFakeClock()), WithInterval(15*time.Millisecond))
	stubs := newStubs(3, &log)
	for _, s := range stubs {
		if err := b.AddRenderable(s); err != nil {
			t.Fatalf("AddRenderable: %v", err)
		}
	}

	if b.Cycle() {
		t.Error("Cycle() = true, want false when every renderable is finished")
	}
	for _, s := range stubs {
		if s.ticks != 1 || s.paints != 1 || s.renders != 1 {
			t.Errorf("%s: ticks=%d paints=%d renders=%d, want 1 each", s.name, s.ticks, s.paints, s.renders)
		}
	}
	if got := b.VisitedLastCycle(); got != 3 {
		t.Errorf("VisitedLastCycle() = %d, want 3", got)
	}
	if b.ExhaustedLastCycle() {
		t.Error("ExhaustedLastCycle() = true")
	}
}

func TestRenderBelt_TicksRunFirstInRegistrationOrder(t *testing.T) {
	var log []string
	b := mustRenderBelt(t, WithClock(newFakeClock()), fixedOffset(2))
	for _, s := range newStubs(3, &log) {
		b.AddRenderable(s)
	}
	b.Cycle()

	want := []string{"tick:a", "tick:b", "tick:c"}
	if !slices.Equal(log[:3], want) {
		t.Errorf("first calls = %v, want %v", log[:3], want)
	}
}

func TestRenderBelt_PaintThenRenderInRotatedOrder(t *testing.T) {
	var log []string
	b := mustRenderBelt(t, WithClock(newFakeClock()), fixedOffset(1))
	for _, s := range newStubs(3, &log) {
		b.AddRenderable(s)
	}
	b.Cycle()

	want := []string{
		"tick:a", "tick:b", "tick:c",
		"paint:b", "render:b",
		"paint:c", "render:c",
		"paint:a", "render:a",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls = %v, want %v", log, want)
	}
}

func TestRenderBelt_SceneChangeRendersFirstAndRequestsAnotherFrame(t *testing.T) {
	var log []string
	b := mustRenderBelt(t, WithClock(newFakeClock()), fixedOffset(0))
	stubs := newStubs(2, &log)
	stubs[1].tickResult = true
	for _, s := range stubs {
		b.AddRenderable(s)
	}

	if !b.Cycle() {
		t.Error("Cycle() = false after a tick changed the scene")
	}
	want := []string{
		"tick:a", "tick:b",
		"render:a", "paint:a",
		"render:b", "paint:b",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls = %v, want %v", log, want)
	}
}

func TestRenderBelt_TickReceivesCycleStart(t *testing.T) {
	clock := newFakeClock()
	b := mustRenderBelt(t, WithClock(clock))
	stubs := newStubs(2, nil)
	for _, s := range stubs {
		b.AddRenderable(s)
	}
	start := clock.Now()
	stubs[0].onPaint = func() { clock.Advance(time.Millisecond) }
	b.Cycle()

	for _, s := range stubs {
		if len(s.tickStarts) != 1 || !s.tickStarts[0].Equal(start) {
			t.Errorf("%s: tick starts = %v, want [%v]", s.name, s.tickStarts, start)
		}
	}
}

func TestRenderBelt_UnfinishedPaintKeepsRequestingFrames(t *testing.T) {
	b := mustRenderBelt(t, WithClock(newFakeClock()))
	s := &stubRenderable{name: "busy", paintResult: true}
	b.AddRenderable(s)

	for i := 1; i <= 5; i++ {
		if !b.Cycle() {
			t.Fatalf("cycle %d: Cycle() = false, want true", i)
		}
		if s.ticks != i {
			t.Errorf("cycle %d: ticks = %d, want %d", i, s.ticks, i)
		}
	}
}

func TestRenderBelt_UnfinishedRenderRequestsFrame(t *testing.T) {
	b := mustRenderBelt(t, WithClock(newFakeClock()))
	stubs := newStubs(3, nil)
	stubs[2].renderResult = true
	for _, s := range stubs {
		b.AddRenderable(s)
	}
	if !b.Cycle() {
		t.Error("Cycle() = false with an unfinished render")
	}
	if b.VisitedLastCycle() != 3 {
		t.Errorf("VisitedLastCycle() = %d, want 3", b.VisitedLastCycle())
	}
}

func TestRenderBelt_EveryRenderableVisitedOncePerCycle(t *testing.T) {
	b := mustRenderBelt(t, WithClock(newFakeClock()))
	stubs := newStubs(5, nil)
	for _, s := range stubs {
		b.AddRenderable(s)
	}
	for i := 1; i <= 50; i++ {
		if b.Cycle() {
			t.Fatalf("cycle %d: Cycle() = true", i)
		}
		for _, s := range stubs {
			if s.ticks != i || s.paints != i || s.renders != i {
				t.Fatalf("cycle %d: %s ticks=%d paints=%d renders=%d", i, s.name, s.ticks, s.paints, s.renders)
			}
		}
	}
}

func TestRenderBelt_PaintBudgetIsStaticEvenSplit(t *testing.T) {
	clock := newFakeClock()
	b := mustRenderBelt(t, WithClock(clock), WithInterval(15*time.Millisecond), fixedOffset(0))
	stubs := newStubs(3, nil)
	// The first renderable uses most of its share; later ones still get 5ms.
	stubs[0].onPaint = func() { clock.Advance(4 * time.Millisecond) }
	for _, s := range stubs {
		b.AddRenderable(s)
	}

	b.Cycle()
	if got := b.PaintBudget(); got != 5*time.Millisecond {
		t.Errorf("PaintBudget() = %v, want 5ms", got)
	}
	for _, s := range stubs {
		if len(s.paintTimeouts) != 1 || s.paintTimeouts[0] != 5*time.Millisecond {
			t.Errorf("%s: paint timeouts = %v, want [5ms]", s.name, s.paintTimeouts)
		}
	}
}

func TestRenderBelt_StopsWhenBudgetExhausted(t *testing.T) {
	clock := newFakeClock()
	b := mustRenderBelt(t, WithClock(clock), WithInterval(15*time.Millisecond), fixedOffset(0))
	stubs := newStubs(3, nil)
	for _, s := range stubs {
		s.onPaint = func() { clock.Advance(10 * time.Millisecond) }
		b.AddRenderable(s)
	}

	if !b.Cycle() {
		t.Fatal("Cycle() = false after running out of budget")
	}
	if !b.ExhaustedLastCycle() {
		t.Error("ExhaustedLastCycle() = false")
	}
	if b.VisitedLastCycle() != 1 {
		t.Errorf("VisitedLastCycle() = %d, want 1", b.VisitedLastCycle())
	}
	// a painted and rendered; b painted past the deadline and was not rendered; c untouched.
	if stubs[0].renders != 1 || stubs[1].paints != 1 || stubs[1].renders != 0 || stubs[2].paints != 0 {
		t.Errorf("a.renders=%d b.paints=%d b.renders=%d c.paints=%d",
			stubs[0].renders, stubs[1].paints, stubs[1].renders, stubs[2].paints)
	}
	for _, s := range stubs {
		if s.ticks != 1 {
			t.Errorf("%s: ticks = %d, want 1 (ticks are never budget-limited)", s.name, s.ticks)
		}
	}
}

func TestRenderBelt_RenderFirstStopsWhenBudgetExhausted(t *testing.T) {
	clock := newFakeClock()
	b := mustRenderBelt(t, WithClock(clock), WithInterval(15*time.Millisecond), fixedOffset(0))
	stubs := newStubs(2, nil)
	stubs[0].tickResult = true
	stubs[0].onRender = func() { clock.Advance(20 * time.Millisecond) }
	for _, s := range stubs {
		b.AddRenderable(s)
	}

	if !b.Cycle() {
		t.Fatal("Cycle() = false")
	}
	if stubs[0].paints != 0 || stubs[1].renders != 0 {
		t.Errorf("a.paints=%d b.renders=%d, want 0, 0", stubs[0].paints, stubs[1].renders)
	}
	if !b.ExhaustedLastCycle() {
		t.Error("ExhaustedLastCycle() = false")
	}
}

func TestRenderBelt_AddRemoveRoundTrip(t *testing.T) {
	b := mustRenderBelt(t, WithClock(newFakeClock()))
	updates := 0
	b.SetOnScheduleUpdate(func() { updates++ })

	keep := &stubRenderable{name: "keep"}
	b.AddRenderable(keep)
	before := b.Len()

	r := &stubRenderable{name: "r"}
	if err := b.AddRenderable(r); err != nil {
		t.Fatalf("AddRenderable: %v", err)
	}
	if r.listener == nil {
		t.Fatal("AddRenderable did not subscribe to the renderable")
	}
	r.listener()
	if updates != 3 {
		t.Errorf("updates = %d, want 3 (two adds, one renderable request)", updates)
	}

	if !b.RemoveRenderable(r) {
		t.Fatal("RemoveRenderable() = false for an added renderable")
	}
	if b.Len() != before {
		t.Errorf("Len() = %d, want %d", b.Len(), before)
	}
	if r.listener != nil {
		t.Error("RemoveRenderable did not clear the subscription")
	}
	if r.unmounts != 1 {
		t.Errorf("unmounts = %d, want 1", r.unmounts)
	}
	if b.RemoveRenderable(r) {
		t.Error("second RemoveRenderable() = true")
	}
	if b.RemoveRenderable(&stubRenderable{name: "stranger"}) {
		t.Error("RemoveRenderable() = true for a never-added renderable")
	}
}

func TestRenderBelt_AddRejectsNilAndDuplicates(t *testing.T) {
	b := mustRenderBelt(t)
	if err := b.AddRenderable(nil); !errors.Is(err, ErrNilRenderable) {
		t.Errorf("AddRenderable(nil) = %v, want ErrNilRenderable", err)
	}
	r := &stubRenderable{name: "r"}
	b.AddRenderable(r)
	if err := b.AddRenderable(r); !errors.Is(err, ErrDuplicateRenderable) {
		t.Errorf("second AddRenderable = %v, want ErrDuplicateRenderable", err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestRenderBelt_LastCycleStart(t *testing.T) {
	clock := newFakeClock()
	b := mustRenderBelt(t, WithClock(clock))
	b.AddRenderable(&stubRenderable{name: "r"})

	b.Cycle()
	if _, ok := b.LastCycleStart(); ok {
		t.Error("LastCycleStart() ok after one cycle")
	}
	first := clock.Now()
	clock.Advance(16 * time.Millisecond)
	b.Cycle()
	got, ok := b.LastCycleStart()
	if !ok || !got.Equal(first) {
		t.Errorf("LastCycleStart() = %v, %v; want %v, true", got, ok, first)
	}
}

func TestRenderBelt_SetInterval(t *testing.T) {
	b := mustRenderBelt(t)
	if err := b.SetInterval(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("SetInterval(0) = %v, want ErrInvalidInterval", err)
	}
	if err := b.SetInterval(time.Second); err != nil || b.Interval() != time.Second {
		t.Errorf("SetInterval(1s) = %v, Interval() = %v", err, b.Interval())
	}
}
