package belt

import "time"

// Budget is a stopwatch measured against a fixed interval.
type Budget struct {
	clock    Clock
	interval time.Duration
	start    time.Time
	started  bool
}

// NewBudget returns a budget that has not been started.
func NewBudget(clock Clock, interval time.Duration) *Budget {
	return &Budget{clock: clock, interval: interval}
}

// Start records the current instant as the start of a cycle.
func (b *Budget) Start() {
	b.start = b.clock.Now()
	b.started = true
}

// Started reports whether Start has been called at least once.
func (b *Budget) Started() bool {
	return b.started
}

// StartedAt returns the instant recorded by the last Start.
func (b *Budget) StartedAt() time.Time {
	return b.start
}

// Interval returns the configured budget.
func (b *Budget) Interval() time.Duration {
	return b.interval
}

// SetInterval changes the budget; it applies from the next comparison on.
func (b *Budget) SetInterval(d time.Duration) {
	b.interval = d
}

// Elapsed returns the time since Start, or zero before the first Start.
func (b *Budget) Elapsed() time.Duration {
	if !b.started {
		return 0
	}
	return b.clock.Since(b.start)
}

// Remaining returns the unused part of the interval. It goes negative once
// the cycle has overrun.
func (b *Budget) Remaining() time.Duration {
	return b.interval - b.Elapsed()
}

// HasElapsed reports whether the budget is used up.
func (b *Budget) HasElapsed() bool {
	return b.Remaining() <= 0
}
