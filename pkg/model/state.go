package model

// BeltState represents where a timing belt is in its frame cycle.
type BeltState string

const (
	BeltStateIdle          BeltState = "IDLE"
	BeltStateRendering     BeltState = "RENDERING"
	BeltStateAwaitingFrame BeltState = "AWAITING_FRAME"
	BeltStateIdleScheduled BeltState = "IDLE_SCHEDULED"
	BeltStateRunningJobs   BeltState = "RUNNING_JOBS"
)

// String returns the string representation of the belt state.
func (s BeltState) String() string {
	return string(s)
}

// ValidBeltTransitions defines the allowed state transitions for a timing belt.
//
// A rate-limited frame goes straight from IDLE or AWAITING_FRAME back to
// AWAITING_FRAME without rendering.
var ValidBeltTransitions = map[BeltState][]BeltState{
	BeltStateIdle:          {BeltStateRendering, BeltStateAwaitingFrame, BeltStateRunningJobs},
	BeltStateRendering:     {BeltStateIdle, BeltStateAwaitingFrame, BeltStateIdleScheduled},
	BeltStateAwaitingFrame: {BeltStateRendering, BeltStateAwaitingFrame, BeltStateRunningJobs},
	BeltStateIdleScheduled: {BeltStateRunningJobs, BeltStateRendering, BeltStateAwaitingFrame},
	BeltStateRunningJobs:   {BeltStateIdle, BeltStateAwaitingFrame},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s BeltState) CanTransitionTo(next BeltState) bool {
	for _, allowed := range ValidBeltTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
