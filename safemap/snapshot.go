package safemap

import "sync/atomic"

// readOnly is an immutable snapshot of the map published to readers. Its
// table is never written after publication; only the entries it points to
// change, through their own atomic transitions.
type readOnly[K comparable, V any] struct {
	m       map[K]*entry[V]
	amended bool // true if the dirty map contains some key not in m
}

// snapshotHolder publishes the current readOnly. load is safe without the
// map mutex; store must only be called with it held.
type snapshotHolder[K comparable, V any] struct {
	p atomic.Pointer[readOnly[K, V]]
}

func (h *snapshotHolder[K, V]) load() readOnly[K, V] {
	if p := h.p.Load(); p != nil {
		return *p
	}

	return readOnly[K, V]{}
}

func (h *snapshotHolder[K, V]) store(r readOnly[K, V]) {
	h.p.Store(&r)
}
