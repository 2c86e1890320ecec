package timer

import "sync/atomic"

// Timer is a one-shot, coalescing timer owned by a Loop. Any number of
// Schedule calls before it fires result in a single listener call.
type Timer struct {
	name     string
	armed    atomic.Bool
	listener func()
	wake     chan struct{}
}

// SetListener installs the function called when the timer fires. It must be
// called before the loop starts or from the loop goroutine.
func (t *Timer) SetListener(fn func()) {
	t.listener = fn
}

// Schedule arms the timer. It is safe to call from any goroutine.
func (t *Timer) Schedule() {
	if !t.armed.CompareAndSwap(false, true) {
		return
	}
	if t.wake != nil {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

// Armed reports whether the timer will fire.
func (t *Timer) Armed() bool {
	return t.armed.Load()
}

// fire disarms the timer and calls the listener. The timer is disarmed
// first so the listener may re-arm it.
func (t *Timer) fire() bool {
	if !t.armed.CompareAndSwap(true, false) {
		return false
	}
	if t.listener != nil {
		t.listener()
	}
	return true
}
