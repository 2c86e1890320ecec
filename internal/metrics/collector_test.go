package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector("ses_1")
	traces := []model.CycleTrace{
		{Kind: model.CycleKindRender, StartedAt: t0, Interval: 15 * time.Millisecond, Duration: 10 * time.Millisecond, State: model.BeltStateIdleScheduled, JobsRemaining: 2},
		{Kind: model.CycleKindIdle, StartedAt: t0.Add(time.Millisecond), Interval: 15 * time.Millisecond, Duration: 2 * time.Millisecond, JobsStepped: 1, MoreWork: true, JobsRemaining: 1},
		{Kind: model.CycleKindRender, StartedAt: t0.Add(16 * time.Millisecond), Interval: 15 * time.Millisecond, Duration: 20 * time.Millisecond, BudgetExhausted: true},
		{Kind: model.CycleKindRender, StartedAt: t0.Add(20 * time.Millisecond), RateLimited: true},
		{Kind: model.CycleKindIdle, StartedAt: t0.Add(40 * time.Millisecond), Duration: 4 * time.Millisecond, JobsStepped: 1, Error: "job job_1: boom"},
		{Kind: model.CycleKindIdle, StartedAt: t0.Add(50 * time.Millisecond), Throttled: true, State: model.BeltStateAwaitingFrame},
	}
	for _, tr := range traces {
		c.Observe(tr)
	}

	s := c.Snapshot()
	if s.SessionID != "ses_1" {
		t.Errorf("SessionID = %q", s.SessionID)
	}
	if s.RenderCycles != 3 || s.IdleCycles != 3 {
		t.Errorf("cycles render=%d idle=%d, want 3, 3", s.RenderCycles, s.IdleCycles)
	}
	if s.RateLimited != 1 || s.BudgetExhausted != 1 || s.Throttled != 1 {
		t.Errorf("rate limited=%d exhausted=%d throttled=%d", s.RateLimited, s.BudgetExhausted, s.Throttled)
	}
	if s.JobSteps != 2 || s.JobFailures != 1 {
		t.Errorf("steps=%d failures=%d, want 2, 1", s.JobSteps, s.JobFailures)
	}
	if s.Overruns != 1 {
		t.Errorf("Overruns = %d, want 1", s.Overruns)
	}
	if s.AvgRenderDuration != 15*time.Millisecond || s.MaxRenderDuration != 20*time.Millisecond {
		t.Errorf("render avg=%v max=%v, want 15ms, 20ms", s.AvgRenderDuration, s.MaxRenderDuration)
	}
	if s.AvgIdleDuration != 3*time.Millisecond {
		t.Errorf("AvgIdleDuration = %v, want 3ms", s.AvgIdleDuration)
	}
	if s.LastCycleAt == nil || !s.LastCycleAt.Equal(t0.Add(50*time.Millisecond)) {
		t.Errorf("LastCycleAt = %v", s.LastCycleAt)
	}
	if s.State != model.BeltStateAwaitingFrame || s.JobsRemaining != 0 {
		t.Errorf("state=%s jobs=%d", s.State, s.JobsRemaining)
	}
}

func TestCollector_SkippedCyclesLeaveAveragesAlone(t *testing.T) {
	tests := []struct {
		name   string
		traces []model.CycleTrace
		render time.Duration
		idle   time.Duration
	}{
		{
			name: "rate limited frames",
			traces: []model.CycleTrace{
				{Kind: model.CycleKindRender, Duration: 8 * time.Millisecond},
				{Kind: model.CycleKindRender, RateLimited: true},
				{Kind: model.CycleKindRender, RateLimited: true, Duration: time.Microsecond},
			},
			render: 8 * time.Millisecond,
		},
		{
			name: "throttled idle passes",
			traces: []model.CycleTrace{
				{Kind: model.CycleKindIdle, Duration: 6 * time.Millisecond, JobsStepped: 1},
				{Kind: model.CycleKindIdle, Throttled: true},
			},
			idle: 6 * time.Millisecond,
		},
		{
			name: "only skipped cycles",
			traces: []model.CycleTrace{
				{Kind: model.CycleKindRender, RateLimited: true},
				{Kind: model.CycleKindIdle, Throttled: true},
			},
		},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector("ses_1")
			for _, tr := range tt.traces {
				c.Observe(tr)
			}
			s := c.Snapshot()
			if s.AvgRenderDuration != tt.render {
				t.Errorf("AvgRenderDuration = %v, want %v", s.AvgRenderDuration, tt.render)
			}
			if s.AvgIdleDuration != tt.idle {
				t.Errorf("AvgIdleDuration = %v, want %v", s.AvgIdleDuration, tt.idle)
			}
			if got := s.RenderCycles + s.IdleCycles; got != int64(len(tt.traces)) {
				t.Errorf("cycles = %d, want %d", got, len(tt.traces))
			}
		})
	}
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector("ses_1")
	c.Observe(model.CycleTrace{Kind: model.CycleKindRender, StartedAt: t0})
	s := c.Snapshot()
	*s.LastCycleAt = t0.Add(time.Hour)

	if got := c.Snapshot().LastCycleAt; !got.Equal(t0) {
		t.Errorf("collector state changed through a snapshot: %v", got)
	}
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector("ses_1")
	c.Observe(model.CycleTrace{Kind: model.CycleKindIdle, JobsStepped: 3, Duration: 9 * time.Millisecond})
	c.Reset()
	s := c.Snapshot()
	if s.IdleCycles != 0 || s.JobSteps != 0 || s.AvgIdleDuration != 0 || s.SessionID != "ses_1" {
		t.Errorf("after Reset: %+v", s)
	}
	c.Observe(model.CycleTrace{Kind: model.CycleKindIdle, Duration: time.Millisecond})
	if got := c.Snapshot().AvgIdleDuration; got != time.Millisecond {
		t.Errorf("AvgIdleDuration after Reset = %v, want 1ms", got)
	}
}

func TestCollector_ConcurrentSnapshots(t *testing.T) {
	c := NewCollector("ses_1")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Observe(model.CycleTrace{Kind: model.CycleKindRender, StartedAt: t0})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Snapshot()
		}
	}()
	wg.Wait()
	if got := c.Snapshot().RenderCycles; got != 1000 {
		t.Errorf("RenderCycles = %d, want 1000", got)
	}
}

func TestFanout(t *testing.T) {
	var a, b int
	fn := Fanout(func(model.CycleTrace) { a++ }, nil, func(model.CycleTrace) { b++ })
	fn(model.CycleTrace{})
	fn(model.CycleTrace{})
	if a != 2 || b != 2 {
		t.Errorf("a=%d b=%d, want 2, 2", a, b)
	}
}

func TestFailureRate(t *testing.T) {
	if got := FailureRate(model.Stats{}); got != 0 {
		t.Errorf("FailureRate(empty) = %v", got)
	}
	if got := FailureRate(model.Stats{IdleCycles: 4, JobFailures: 1}); got != 0.25 {
		t.Errorf("FailureRate = %v, want 0.25", got)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(model.Stats{RenderCycles: 5, IdleCycles: 2, JobSteps: 3, Overruns: 1})
	want := "render=5 idle=2 steps=3 failures=0 overruns=1"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
