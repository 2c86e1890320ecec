// Package belt implements a cooperative frame scheduler.
//
// A TimingBelt splits each animation frame between a RenderBelt, which ticks,
// paints and renders a set of Renderables under a per-frame time budget, and a
// JobBelt, which runs queued background jobs in whatever time the frame leaves.
//
// Nothing in this package is safe for concurrent use. All calls, including the
// timer listeners, must be made from the single goroutine that drives the belt.
package belt

import (
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/me/timingbelt/pkg/model"
)

// Defaults: a 15ms paint budget with throttled, one-step idle work.
const (
	DefaultInterval  = 15 * time.Millisecond
	DefaultGovernor  = true
	DefaultBurstIdle = false
)

// Observer receives a trace for every frame and idle cycle of a TimingBelt.
type Observer func(model.CycleTrace)

// Option configures a belt at construction time.
type Option func(*options)

type options struct {
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	intn     func(n int) int
	observer Observer
	onError  func(error)
	session  string
}

// WithInterval sets the per-cycle time budget.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithClock replaces the system clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger; belts derive a component logger from it.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRand sets the source of rotation offsets. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(o *options) {
		o.intn = intn
	}
}

// WithObserver registers a cycle observer on a TimingBelt.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithErrorHandler receives job failures raised while the idle timer drives
// the belt. Without one, failures are logged.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithSessionID tags every trace with the given session id instead of a
// generated one.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.session = id
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		interval: DefaultInterval,
		clock:    SystemClock{},
		intn:     rand.Intn,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.interval <= 0 {
		return o, ErrInvalidInterval
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.session == "" {
		o.session = newID("ses")
	}
	return o, nil
}

// newID returns a short prefixed identifier, e.g. "job_1a2b3c4d".
func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}
