package demo

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/timingbelt/pkg/belt"
)

type manualTimer struct {
	listener func()
	armed    bool
}

func (t *manualTimer) SetListener(fn func()) { t.listener = fn }
func (t *manualTimer) Schedule()             { t.armed = true }

func (t *manualTimer) fire() bool {
	if !t.armed {
		return false
	}
	t.armed = false
	t.listener()
	return true
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time                  { return c.now }
func (c *stepClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

type fixture struct {
	h     *Harness
	frame *manualTimer
	idle  *manualTimer
	clock *stepClock
	spent []time.Duration
}

func newFixture(t *testing.T, opts ...belt.Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		frame: &manualTimer{},
		idle:  &manualTimer{},
		clock: &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts = append([]belt.Option{belt.WithClock(f.clock), belt.WithLogger(logger)}, opts...)
	tb, err := belt.New(f.frame, f.idle, opts...)
	if err != nil {
		t.Fatalf("belt.New: %v", err)
	}
	f.h = NewHarness(tb, logger,
		WithNow(func() time.Time { return f.clock.now }),
		WithSpend(func(d time.Duration) { f.spent = append(f.spent, d) }),
	)
	return f
}

// drive fires armed timers, one frame apart, until the belt goes quiet.
func (f *fixture) drive(t *testing.T) {
	t.Helper()
	for n := 0; n < 10000; n++ {
		f.clock.now = f.clock.now.Add(16 * time.Millisecond)
		if f.frame.fire() || f.idle.fire() {
			continue
		}
		return
	}
	t.Fatal("belt never went quiet")
}
