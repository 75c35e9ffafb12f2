// Package once provides a run-once executor. A task runs at most once per
// Once; callers that lose the race wait until the winning call has finished
// so they observe its effects.
package once

import (
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/syncutils/scopeguard"
)

// Once performs exactly one action. The zero Once is ready for use and must
// not be copied after first use.
type Once struct {
	done atomic.Bool
	mu   sync.Mutex
}

// Do calls fn if and only if Do is being called for the first time on this
// Once. If fn panics, Do considers it returned; future calls do not run fn.
//
// Parameters:
//   - fn: The function to run once
func (o *Once) Do(fn func()) {
	if o.done.Load() {
		return
	}

	o.doSlow(fn)
}

func (o *Once) doSlow(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done.Load() {
		return
	}

	g := scopeguard.New(func() { o.done.Store(true) })
	defer g.Run()

	if fn != nil {
		fn()
	}
}

// Done reports whether the action has already run.
func (o *Once) Done() bool {
	return o.done.Load()
}
