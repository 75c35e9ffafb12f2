// Package hashtable provides a generic hash table guarded by a single
// reader/writer lock. Reads share the lock; writes, removals and bulk
// operations take it exclusively.
package hashtable

import "sync"

// PutStatus reports what a Put or TryPut did.
type PutStatus int

const (
	PutSkipped   PutStatus = iota // Key existed and TryPut left it unchanged
	PutNew                        // Key was absent and has been inserted
	PutOverwrite                  // Key existed and its value was replaced
)

// String returns a human-readable name for the status.
func (s PutStatus) String() string {
	switch s {
	case PutSkipped:
		return "Skipped"
	case PutNew:
		return "New"
	case PutOverwrite:
		return "Overwrite"
	default:
		return "Unknown"
	}
}

// HashTable is a map safe for concurrent use by multiple goroutines. The
// zero HashTable is not usable; create one with NewHashTable.
type HashTable[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewHashTable returns an empty HashTable.
//
// Returns:
//   - A pointer to a new HashTable[K, V]
func NewHashTable[K comparable, V any]() *HashTable[K, V] {
	return &HashTable[K, V]{m: make(map[K]V)}
}

// Put inserts or replaces the value for k.
//
// Parameters:
//   - k: The key to write
//   - v: The value to associate with k
//
// Returns:
//   - PutNew if k was absent, PutOverwrite if an existing value was replaced
func (h *HashTable[K, V]) Put(k K, v V) PutStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, exists := h.m[k]
	h.m[k] = v
	if exists {
		return PutOverwrite
	}

	return PutNew
}

// TryPut inserts v only if k is absent.
//
// Parameters:
//   - k: The key to write
//   - v: The value to associate with k
//
// Returns:
//   - PutNew if k was inserted, PutSkipped if k already existed
func (h *HashTable[K, V]) TryPut(k K, v V) PutStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.m[k]; exists {
		return PutSkipped
	}

	h.m[k] = v
	return PutNew
}

// Get returns the value for k.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (h *HashTable[K, V]) Get(k K) (V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	v, ok := h.m[k]
	return v, ok
}

// Remove deletes k and returns the value it held.
//
// Parameters:
//   - k: The key to remove
//
// Returns:
//   - The removed value, or the zero value of V if k was absent
//   - true if k was present, false otherwise
func (h *HashTable[K, V]) Remove(k K) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.m[k]
	if ok {
		delete(h.m, k)
	}

	return v, ok
}

// Len returns the number of entries.
func (h *HashTable[K, V]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}

// Clear swaps in an empty table and returns the previous contents. The
// returned map is owned by the caller.
//
// Returns:
//   - Every entry the table held at the time of the call
func (h *HashTable[K, V]) Clear() map[K]V {
	fresh := make(map[K]V)

	h.mu.Lock()
	old := h.m
	h.m = fresh
	h.mu.Unlock()

	return old
}

// ForEach calls f for every entry while holding the read lock. f must not
// call methods that take the write lock. A nil f is a no-op.
//
// Parameters:
//   - f: Function called for each entry
func (h *HashTable[K, V]) ForEach(f func(k K, v V)) {
	if f == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for k, v := range h.m {
		f(k, v)
	}
}

// RemoveIf deletes every entry for which pred returns true. pred runs with
// the write lock held and must not call back into the table. A nil pred
// removes nothing.
//
// Parameters:
//   - pred: Function deciding whether an entry is removed
//
// Returns:
//   - The number of entries removed
func (h *HashTable[K, V]) RemoveIf(pred func(k K, v V) bool) int {
	if pred == nil {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for k, v := range h.m {
		if pred(k, v) {
			delete(h.m, k)
			count++
		}
	}

	return count
}
