// Package scopeguard provides a dismissable cleanup guard. A Guard holds a
// function that runs when the guarded scope exits unless the guard has been
// cancelled first, e.g. to roll back partial work unless a commit succeeded.
package scopeguard

import "sync/atomic"

// Guard runs its function at most once. It is safe for concurrent use.
type Guard struct {
	fn   func()
	done atomic.Bool
}

// New returns a Guard that will run fn. A nil fn is allowed and makes Run a
// no-op.
//
// Typical use:
//
//	g := scopeguard.New(func() { flag.Store(false) })
//	defer g.Run()
//
// Parameters:
//   - fn: The function to run when the guard fires
//
// Returns:
//   - A new armed Guard
func New(fn func()) *Guard {
	return &Guard{fn: fn}
}

// Run calls the guarded function unless the guard was cancelled or has
// already run. Only the first call to Run or Cancel has any effect.
func (g *Guard) Run() {
	if !g.done.CompareAndSwap(false, true) {
		return
	}

	if g.fn != nil {
		g.fn()
	}
}

// Cancel disarms the guard so that a later Run does nothing.
//
// Returns:
//   - true if the guard was still armed, false if it had already run or been cancelled
func (g *Guard) Cancel() bool {
	return g.done.CompareAndSwap(false, true)
}

// Armed reports whether the guard will still run its function.
func (g *Guard) Armed() bool {
	return !g.done.Load()
}
