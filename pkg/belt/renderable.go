package belt

import "time"

// Renderable is an entity driven once per frame by a RenderBelt.
//
// Implementations must be comparable (typically pointer types); membership
// in a belt is decided by ==.
type Renderable interface {
	// Tick advances input and animation state. It returns true if the
	// scene changed.
	Tick(cycleStart time.Time) bool

	// Paint prepares the renderable's output within roughly timeout.
	// It returns true if painting is incomplete.
	Paint(timeout time.Duration) bool

	// Render presents the painted output. It returns true if rendering is
	// incomplete.
	Render() bool

	// Unmount frees everything held for rendering, returning the
	// renderable to an unpainted state.
	Unmount()

	// SetOnScheduleUpdate installs the listener to call when the
	// renderable needs another frame. nil clears it.
	SetOnScheduleUpdate(fn func())
}
