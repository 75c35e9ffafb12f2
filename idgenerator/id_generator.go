// Package idgenerator hands out sequential uint32 identifiers, e.g. for
// connection sessions kept in a safemap.SafeMap.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint32 IDs in a concurrency-safe
// manner. The first Id() after construction or Reset returns start+1; the
// counter wraps around at the uint32 limit.
type IdGenerator struct {
	start uint32
	id    atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first ID is startValue+1.
// Passing 0 reserves 0 as an "invalid" ID.
//
// Parameters:
//   - startValue: The value the counter starts from
//
// Returns:
//   - A new IdGenerator instance
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{start: startValue}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID.
func (g *IdGenerator) Id() uint32 {
	return g.id.Add(1)
}

// Last returns the most recently issued ID, or the start value if none has
// been issued yet.
func (g *IdGenerator) Last() uint32 {
	return g.id.Load()
}

// Reset rewinds the counter to its start value. IDs issued before the reset
// will be issued again, so callers must make sure none are still in use.
func (g *IdGenerator) Reset() {
	g.id.Store(g.start)
}
