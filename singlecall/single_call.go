// Package singlecall lets at most one goroutine at a time run a function.
// Callers that lose the race return immediately without waiting or retrying,
// which suits periodic maintenance jobs where one runner is enough.
package singlecall

import (
	"sync/atomic"

	"github.com/cyberinferno/syncutils/safemap"
	"github.com/cyberinferno/syncutils/scopeguard"
)

// Call runs fn if no other caller currently holds flag. flag must be false
// while idle; it is set for the duration of fn and reset on every exit path,
// including a panic in fn (the panic is still propagated to the caller).
//
// Parameters:
//   - flag: Shared busy flag; false means no call is in progress
//   - fn: The function to run
//
// Returns:
//   - true if fn was run by this caller, false if another call was in progress
func Call(flag *atomic.Bool, fn func()) bool {
	if !flag.CompareAndSwap(false, true) {
		return false
	}

	g := scopeguard.New(func() { flag.Store(false) })
	defer g.Run()

	fn()
	return true
}

// Guard owns the busy flag for a single-call region. The zero Guard is ready
// for use.
type Guard struct {
	busy atomic.Bool
}

// Call runs fn unless another goroutine is already running a function
// through this Guard.
//
// Parameters:
//   - fn: The function to run
//
// Returns:
//   - true if fn was run, false if the call was skipped
func (g *Guard) Call(fn func()) bool {
	return Call(&g.busy, fn)
}

// Busy reports whether a call is currently in progress.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

// KeyedGuard hands out one Guard per key, so calls for different keys run
// independently while calls for the same key are single-flighted. Guards are
// created on first use and kept for the lifetime of the KeyedGuard, which
// makes the key set read-mostly.
type KeyedGuard[K comparable] struct {
	guards safemap.SafeMap[K, *Guard]
}

// NewKeyedGuard returns an empty KeyedGuard.
func NewKeyedGuard[K comparable]() *KeyedGuard[K] {
	return &KeyedGuard[K]{}
}

// Call runs fn unless a call for the same key is already in progress.
//
// Parameters:
//   - key: The key identifying the guarded region
//   - fn: The function to run
//
// Returns:
//   - true if fn was run, false if the call was skipped
func (k *KeyedGuard[K]) Call(key K, fn func()) bool {
	return k.guard(key).Call(fn)
}

// Busy reports whether a call for key is currently in progress.
func (k *KeyedGuard[K]) Busy(key K) bool {
	g, ok := k.guards.Load(key)
	return ok && g.Busy()
}

func (k *KeyedGuard[K]) guard(key K) *Guard {
	if g, ok := k.guards.Load(key); ok {
		return g
	}

	g, _ := k.guards.LoadOrStore(key, &Guard{})
	return g
}
