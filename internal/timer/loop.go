// Package timer drives a belt.TimingBelt from a single goroutine.
//
// A Loop owns a frame ticker and two coalescing timers. The frame timer fires
// on the next tick after it is armed; the idle timer fires as soon as the loop
// has nothing else to do. Everything that touches the belt, including HTTP
// handlers, must go through Do or Submit so that it runs on the loop goroutine.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do and Submit once the loop has exited.
var ErrStopped = errors.New("timer loop stopped")

// Config holds loop configuration.
type Config struct {
	FramePeriod time.Duration
	QueueSize   int
}

// DefaultConfig returns a 60Hz loop.
func DefaultConfig() Config {
	return Config{FramePeriod: time.Second / 60, QueueSize: 64}
}

// Loop runs timer listeners and submitted calls on one goroutine.
type Loop struct {
	config Config
	logger *slog.Logger

	frame *Timer
	idle  *Timer

	calls    chan func()
	idleWake chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	frames atomic.Int64
	idles  atomic.Int64
}

// NewLoop creates a loop. It does nothing until Start is called.
func NewLoop(cfg Config, logger *slog.Logger) *Loop {
	if cfg.FramePeriod <= 0 {
		cfg.FramePeriod = DefaultConfig().FramePeriod
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	l := &Loop{
		config:   cfg,
		logger:   logger.With("component", "timer"),
		calls:    make(chan func(), cfg.QueueSize),
		idleWake: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	l.frame = &Timer{name: "frame"}
	l.idle = &Timer{name: "idle", wake: l.idleWake}
	return l
}

// FrameTimer returns the timer that fires on the next frame tick.
func (l *Loop) FrameTimer() *Timer {
	return l.frame
}

// IdleTimer returns the timer that fires when the loop is otherwise free.
func (l *Loop) IdleTimer() *Timer {
	return l.idle
}

// Frames returns how many times the frame timer has fired.
func (l *Loop) Frames() int64 {
	return l.frames.Load()
}

// Idles returns how many times the idle timer has fired.
func (l *Loop) Idles() int64 {
	return l.idles.Load()
}

// Start runs the loop. Blocks until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("timer loop started", "frame_period", l.config.FramePeriod)
	ticker := time.NewTicker(l.config.FramePeriod)
	defer ticker.Stop()
	defer close(l.doneCh)

	for {
		// Queued calls and a pending idle run before the next frame is considered.
		select {
		case fn := <-l.calls:
			fn()
			continue
		default:
		}

		select {
		case <-ctx.Done():
			l.logger.Info("timer loop stopping (context cancelled)")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("timer loop stopping (stop called)")
			return nil
		case fn := <-l.calls:
			fn()
		case <-ticker.C:
			if l.frame.fire() {
				l.frames.Add(1)
			}
		case <-l.idleWake:
			if l.idle.fire() {
				l.idles.Add(1)
			}
		}
	}
}

// Stop shuts the loop down and waits for the current callback to finish.
// It is safe to call more than once.
func (l *Loop) Stop() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
	return nil
}

// Done is closed when the loop exits.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}

// Do runs fn on the loop goroutine and waits for it to return. If ctx ends
// or the loop stops before fn starts, fn is never run and Do reports why.
// Once fn has started, Do waits for it and returns nil.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	done := make(chan struct{})
	call := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(done)
		fn()
	}
	select {
	case l.calls <- call:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.doneCh:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-done
		return nil
	case <-l.doneCh:
		if claimed.CompareAndSwap(false, true) {
			return ErrStopped
		}
		<-done
		return nil
	}
}

// Submit queues fn to run on the loop goroutine without waiting for it.
// It blocks while the queue is full.
func (l *Loop) Submit(fn func()) error {
	select {
	case l.calls <- fn:
		return nil
	case <-l.doneCh:
		return ErrStopped
	}
}
