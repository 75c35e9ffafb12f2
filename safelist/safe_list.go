// Package safelist provides a concurrent append-only list. Appends go to a
// small buffer behind their own mutex, so they never wait for a long
// iteration, and iteration drains the buffer in one batch so it is never
// starved by a stream of appends.
package safelist

import "sync"

// SafeList is a list that supports concurrent Add alongside ForEach and
// ForEachRemove. Elements keep insertion order within the list, but elements
// added concurrently with an iteration may appear in the next one.
type SafeList[T any] struct {
	listMu sync.RWMutex
	list   []T

	bufferMu sync.Mutex
	buffer   []T
}

// NewSafeList returns a SafeList holding items in order.
//
// Parameters:
//   - items: Optional initial elements
//
// Returns:
//   - A pointer to a new SafeList[T]
func NewSafeList[T any](items ...T) *SafeList[T] {
	list := make([]T, len(items))
	copy(list, items)
	return &SafeList[T]{list: list}
}

// Add appends v. It only contends with other Add calls and the brief buffer
// swap at the start of an iteration.
//
// Parameters:
//   - v: The element to append
func (l *SafeList[T]) Add(v T) {
	l.bufferMu.Lock()
	l.buffer = append(l.buffer, v)
	l.bufferMu.Unlock()
}

// takeBuffer detaches the pending buffer.
func (l *SafeList[T]) takeBuffer() []T {
	l.bufferMu.Lock()
	defer l.bufferMu.Unlock()

	buffer := l.buffer
	l.buffer = nil
	return buffer
}

// ForEach moves pending elements into the list and then calls f for every
// element in order. Concurrent ForEach calls iterate in parallel. f must not
// call ForEachRemove. A nil f still drains the buffer.
//
// Parameters:
//   - f: Function called for each element
func (l *SafeList[T]) ForEach(f func(v T)) {
	l.listMu.Lock()
	l.list = append(l.list, l.takeBuffer()...)
	l.listMu.Unlock()

	if f == nil {
		return
	}

	l.listMu.RLock()
	defer l.listMu.RUnlock()

	for _, v := range l.list {
		f(v)
	}
}

// ForEachRemove keeps only the elements for which keep returns true,
// including pending ones, and reports how many were dropped. keep runs with
// the list locked exclusively.
//
// Parameters:
//   - keep: Function deciding whether an element stays in the list
//
// Returns:
//   - The number of elements removed
func (l *SafeList[T]) ForEachRemove(keep func(v T) bool) int {
	if keep == nil {
		return 0
	}

	l.listMu.Lock()
	defer l.listMu.Unlock()

	count := 0
	kept := l.list[:0]
	for _, v := range l.list {
		if keep(v) {
			kept = append(kept, v)
		} else {
			count++
		}
	}

	for _, v := range l.takeBuffer() {
		if keep(v) {
			kept = append(kept, v)
		} else {
			count++
		}
	}

	// Clear the tail so dropped elements can be collected.
	var zero T
	for i := len(kept); i < len(l.list); i++ {
		l.list[i] = zero
	}
	l.list = kept

	return count
}

// Len returns the number of elements, pending ones included.
func (l *SafeList[T]) Len() int {
	l.listMu.RLock()
	n := len(l.list)
	l.listMu.RUnlock()

	l.bufferMu.Lock()
	n += len(l.buffer)
	l.bufferMu.Unlock()

	return n
}
