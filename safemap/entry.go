package safemap

import (
	"sync/atomic"
	"unsafe"
)

// expunged is an arbitrary pointer that marks entries which have been deleted
// and deliberately left out of the dirty map. It is never dereferenced.
var expunged = unsafe.Pointer(new(byte))

// entryState is the lifecycle tag of an entry, derived from its pointer.
type entryState uint8

const (
	stateNull entryState = iota
	statePresent
	stateExpunged
)

// String returns a human-readable name for the state.
func (s entryState) String() string {
	switch s {
	case stateNull:
		return "Null"
	case statePresent:
		return "Present"
	case stateExpunged:
		return "Expunged"
	default:
		return "Unknown"
	}
}

// entry is the storage slot for one key. It is shared by pointer between the
// published snapshot and the dirty map, so a write through either stays
// visible after promotion.
//
// p encodes value and tag in one word:
//   - nil: deleted (Null). Either the dirty map is nil or it holds this entry.
//   - expungedPtr: deleted (Expunged). The dirty map exists and does not hold
//     this entry; only the map, under its mutex, may bring it back.
//   - anything else: Present, pointing at the stored value.
type entry[V any] struct {
	p atomic.Pointer[V]
}

func newEntry[V any](v V) *entry[V] {
	e := &entry[V]{}
	e.p.Store(&v)
	return e
}

func expungedPtr[V any]() *V {
	return (*V)(expunged)
}

func (e *entry[V]) state() entryState {
	switch p := e.p.Load(); p {
	case nil:
		return stateNull
	case expungedPtr[V]():
		return stateExpunged
	default:
		return statePresent
	}
}

func (e *entry[V]) load() (value V, ok bool) {
	p := e.p.Load()
	if p == nil || p == expungedPtr[V]() {
		return value, false
	}

	return *p, true
}

// tryStore stores v if the entry has not been expunged. A false result means
// the caller must take the map mutex and unexpunge the entry first.
func (e *entry[V]) tryStore(v V) bool {
	for {
		p := e.p.Load()
		if p == expungedPtr[V]() {
			return false
		}

		if e.p.CompareAndSwap(p, &v) {
			return true
		}
	}
}

// storeLocked unconditionally stores v. The entry must be known not to be
// expunged and the map mutex must be held.
func (e *entry[V]) storeLocked(v V) {
	e.p.Store(&v)
}

// tryLoadOrStore returns the existing value if present. Otherwise it stores v
// and reports loaded=false. ok is false only when the entry is expunged.
func (e *entry[V]) tryLoadOrStore(v V) (actual V, loaded, ok bool) {
	p := e.p.Load()
	if p == expungedPtr[V]() {
		return actual, false, false
	}
	if p != nil {
		return *p, true, true
	}

	// Copy once so a failed first comparison doesn't allocate.
	ic := v
	for {
		if e.p.CompareAndSwap(nil, &ic) {
			return v, false, true
		}

		p = e.p.Load()
		if p == expungedPtr[V]() {
			return actual, false, false
		}
		if p != nil {
			return *p, true, true
		}
	}
}

// delete moves a present entry to Null and returns the removed value.
func (e *entry[V]) delete() (value V, ok bool) {
	for {
		p := e.p.Load()
		if p == nil || p == expungedPtr[V]() {
			return value, false
		}

		if e.p.CompareAndSwap(p, nil) {
			return *p, true
		}
	}
}

// tryExpungeLocked marks a Null entry as Expunged. It reports whether the
// entry is expunged afterwards, i.e. whether it must be left out of the dirty
// map being built.
func (e *entry[V]) tryExpungeLocked() (isExpunged bool) {
	p := e.p.Load()
	for p == nil {
		if e.p.CompareAndSwap(nil, expungedPtr[V]()) {
			return true
		}
		p = e.p.Load()
	}

	return p == expungedPtr[V]()
}

// unexpungeLocked moves an Expunged entry back to Null. If it reports true
// the entry must be added to the dirty map before the mutex is released.
func (e *entry[V]) unexpungeLocked() (wasExpunged bool) {
	return e.p.CompareAndSwap(expungedPtr[V](), nil)
}
