package wallet

import "sync/atomic"

// GuardState is the state of a Guard
type GuardState string

const (
	GuardIdle       GuardState = "IDLE"
	GuardRequesting GuardState = "REQUESTING"
)

// Guard is a single-slot lock that keeps wallet requests from overlapping.
// One Guard is shared by every wallet-initiated flow that talks to the same provider.
type Guard struct {
	busy atomic.Bool
}

// NewGuard creates an idle guard
func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire moves the guard from IDLE to REQUESTING.
// It returns false without blocking if the guard is already held.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release returns the guard to IDLE
func (g *Guard) Release() {
	g.busy.Store(false)
}

// State reports the current guard state
func (g *Guard) State() GuardState {
	if g.busy.Load() {
		return GuardRequesting
	}
	return GuardIdle
}
