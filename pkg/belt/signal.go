package belt

// Signal is a single-listener notification slot. Set replaces any previous
// listener and a nil listener clears it.
type Signal struct {
	fn func()
}

// Set installs fn as the only listener.
func (s *Signal) Set(fn func()) {
	s.fn = fn
}

// Emit calls the listener, if any.
func (s *Signal) Emit() {
	if s.fn != nil {
		s.fn()
	}
}
