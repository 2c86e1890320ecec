// Package metrics aggregates cycle traces into running statistics.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// Collector folds cycle traces into a model.Stats. Observe is called from the
// loop goroutine; Snapshot and Reset may be called from anywhere.
type Collector struct {
	mu    sync.RWMutex
	stats model.Stats
	// Totals and counts of the cycles that did work. Rate-limited frames
	// and throttled idle passes are counted but not timed.
	renderTotal time.Duration
	renderTimed int64
	idleTotal   time.Duration
	idleTimed   int64
}

// NewCollector creates an empty collector for sessionID.
func NewCollector(sessionID string) *Collector {
	return &Collector{stats: model.Stats{SessionID: sessionID, State: model.BeltStateIdle}}
}

// Observe records one trace. It has the belt.Observer signature.
func (c *Collector) Observe(tr model.CycleTrace) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.stats
	switch tr.Kind {
	case model.CycleKindRender:
		s.RenderCycles++
		if tr.BudgetExhausted {
			s.BudgetExhausted++
		}
		if tr.RateLimited {
			s.RateLimited++
			break
		}
		c.renderTotal += tr.Duration
		c.renderTimed++
		s.AvgRenderDuration = c.renderTotal / time.Duration(c.renderTimed)
		s.MaxRenderDuration = max(s.MaxRenderDuration, tr.Duration)
	case model.CycleKindIdle:
		s.IdleCycles++
		s.JobSteps += int64(tr.JobsStepped)
		if tr.Error != "" {
			s.JobFailures++
		}
		if tr.Throttled {
			s.Throttled++
			break
		}
		c.idleTotal += tr.Duration
		c.idleTimed++
		s.AvgIdleDuration = c.idleTotal / time.Duration(c.idleTimed)
	}
	if tr.Overran() {
		s.Overruns++
	}

	at := tr.StartedAt
	s.LastCycleAt = &at
	s.State = tr.State
	s.JobsRemaining = tr.JobsRemaining
}

// Snapshot returns a copy of the current statistics.
func (c *Collector) Snapshot() model.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	if s.LastCycleAt != nil {
		at := *s.LastCycleAt
		s.LastCycleAt = &at
	}
	return s
}

// Reset clears all counters, keeping the session id.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = model.Stats{SessionID: c.stats.SessionID, State: c.stats.State}
	c.renderTotal, c.renderTimed = 0, 0
	c.idleTotal, c.idleTimed = 0, 0
}

// Fanout returns an observer that calls each non-nil observer in order.
func Fanout(observers ...func(model.CycleTrace)) func(model.CycleTrace) {
	return func(tr model.CycleTrace) {
		for _, o := range observers {
			if o != nil {
				o(tr)
			}
		}
	}
}

// FailureRate returns the fraction of idle cycles that ended in a job failure.
func FailureRate(s model.Stats) float64 {
	if s.IdleCycles == 0 {
		return 0
	}
	return float64(s.JobFailures) / float64(s.IdleCycles)
}

// Describe summarises s on one line for logs.
func Describe(s model.Stats) string {
	return fmt.Sprintf("render=%d idle=%d steps=%d failures=%d overruns=%d",
		s.RenderCycles, s.IdleCycles, s.JobSteps, s.JobFailures, s.Overruns)
}
