// Package safemap provides a type-safe concurrent map optimized for
// read-mostly workloads. Reads of keys already in the published snapshot take
// no lock; writes update entries in place when they can and otherwise fall
// back to a mutex-guarded dirty map that is periodically promoted to become
// the new snapshot.
package safemap

import "sync"

// SafeMap is a concurrent map that is safe for use by multiple goroutines.
// Keys must be comparable (as defined by the comparable constraint); values
// may be any type.
//
// SafeMap suits maps whose key set is mostly stable: caches that only grow,
// registries, or goroutines writing disjoint keys. Load, Store, LoadOrStore
// and Delete run in amortized constant time. Len and Range are O(n).
//
// The zero SafeMap is empty and ready for use. A SafeMap must not be copied
// after first use.
type SafeMap[K comparable, V any] struct {
	mu sync.Mutex

	// read holds the snapshot that is safe for concurrent access with or
	// without mu held. Entries in it may be updated without mu, but an
	// expunged entry must be unexpunged and copied to dirty under mu first.
	read snapshotHolder[K, V]

	// dirty holds keys that require mu. Once non-nil it also holds every
	// non-expunged entry of read so that it can be promoted wholesale.
	dirty map[K]*entry[V]

	// misses counts lookups since the last promotion that had to lock mu to
	// determine whether a key was present.
	misses int
}

// NewSafeMap returns a new SafeMap ready for use. The map is empty and
// safe for concurrent use by multiple goroutines.
//
// Returns:
//   - A pointer to a new SafeMap[K, V]
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{}
}

// Store sets the value for key k. It overwrites any existing value for k.
//
// Parameters:
//   - k: The key to store
//   - v: The value to associate with k
func (m *SafeMap[K, V]) Store(k K, v V) {
	read := m.read.load()
	if e, ok := read.m[k]; ok && e.tryStore(v) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	read = m.read.load()
	if e, ok := read.m[k]; ok {
		if e.unexpungeLocked() {
			// The entry was expunged, so dirty is non-nil and lacks it.
			m.dirty[k] = e
		}
		e.storeLocked(v)
	} else if e, ok := m.dirty[k]; ok {
		e.storeLocked(v)
	} else {
		m.amendLocked(read)
		m.dirty[k] = newEntry(v)
	}
}

// Set sets the value for key k. It is equivalent to Store and overwrites
// any existing value for k.
//
// Parameters:
//   - k: The key to set
//   - v: The value to associate with k
func (m *SafeMap[K, V]) Set(k K, v V) {
	m.Store(k, v)
}

// Load returns the value for key k and a boolean indicating whether the key
// was present. If the key is not in the map, the value is the zero value
// for V and the boolean is false.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	read := m.read.load()
	e, ok := read.m[k]
	if !ok && read.amended {
		m.mu.Lock()
		// dirty may have been promoted while we waited for mu.
		read = m.read.load()
		e, ok = read.m[k]
		if !ok && read.amended {
			e, ok = m.dirty[k]
			// Record a miss whether or not the key was there: it takes the
			// slow path until dirty is promoted.
			m.missLocked()
		}
		m.mu.Unlock()
	}

	if !ok {
		var empty V
		return empty, false
	}

	return e.load()
}

// Get returns the value for key k. It is equivalent to Load.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (m *SafeMap[K, V]) Get(k K) (V, bool) {
	return m.Load(k)
}

// LoadOrStore returns the existing value for k if present. Otherwise it
// stores v and returns it.
//
// Parameters:
//   - k: The key to look up or store
//   - v: The value to store if k is absent
//
// Returns:
//   - The value now associated with k
//   - true if the value was loaded, false if v was stored
func (m *SafeMap[K, V]) LoadOrStore(k K, v V) (actual V, loaded bool) {
	read := m.read.load()
	if e, ok := read.m[k]; ok {
		actual, loaded, ok := e.tryLoadOrStore(v)
		if ok {
			return actual, loaded
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	read = m.read.load()
	if e, ok := read.m[k]; ok {
		if e.unexpungeLocked() {
			m.dirty[k] = e
		}
		actual, loaded, _ = e.tryLoadOrStore(v)
	} else if e, ok := m.dirty[k]; ok {
		actual, loaded, _ = e.tryLoadOrStore(v)
		m.missLocked()
	} else {
		m.amendLocked(read)
		m.dirty[k] = newEntry(v)
		actual, loaded = v, false
	}

	return actual, loaded
}

// Delete removes the entry for key k and returns the removed value. It is
// safe to call for a key that is not in the map; the call is a no-op in that
// case.
//
// Parameters:
//   - k: The key to delete
//
// Returns:
//   - The value that was removed, or the zero value of V if none
//   - true if a value was removed, false otherwise
func (m *SafeMap[K, V]) Delete(k K) (V, bool) {
	read := m.read.load()
	e, ok := read.m[k]
	if !ok && read.amended {
		m.mu.Lock()
		read = m.read.load()
		e, ok = read.m[k]
		if !ok && read.amended {
			e, ok = m.dirty[k]
			// Drop the mapping too, otherwise the key would come back on the
			// next promotion with a Null entry that nothing expunges.
			delete(m.dirty, k)
			m.missLocked()
		}
		m.mu.Unlock()
	}

	if !ok {
		var empty V
		return empty, false
	}

	return e.delete()
}

// Range calls f sequentially for each key and value present in the map.
// If f returns false, Range stops the iteration. A nil f is a no-op.
//
// If the map has keys outside its published snapshot, Range first promotes
// them so the traversal covers one complete key set, then iterates without
// holding the lock. Range observes every key stored before it began; it may
// or may not reflect stores and deletes that happen concurrently. f may call
// any method on the map.
//
// Parameters:
//   - f: Function called for each entry; return false to stop iteration
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	if f == nil {
		return
	}

	read := m.read.load()
	if read.amended {
		m.mu.Lock()
		read = m.read.load()
		if read.amended {
			read = m.promoteLocked()
		}
		m.mu.Unlock()
	}

	for k, e := range read.m {
		v, ok := e.load()
		if !ok {
			continue
		}

		if !f(k, v) {
			break
		}
	}
}

// Reset empties the map and returns its former contents. The drain is
// point-in-time: writers that start after Reset returns accumulate into a
// clean map.
//
// Returns:
//   - A plain map of every key that was present at the time of the call
func (m *SafeMap[K, V]) Reset() map[K]V {
	m.mu.Lock()
	read := m.read.load()
	if read.amended {
		read = readOnly[K, V]{m: m.dirty}
	}
	m.read.store(readOnly[K, V]{})
	m.dirty = nil
	m.misses = 0
	m.mu.Unlock()

	raw := make(map[K]V, len(read.m))
	for k, e := range read.m {
		if v, ok := e.load(); ok {
			raw[k] = v
		}
	}

	return raw
}

// Len returns the number of entries in the map. It iterates over all entries
// to compute the count; use sparingly on large maps.
//
// Returns:
//   - The number of key-value pairs in the map
func (m *SafeMap[K, V]) Len() int {
	length := 0
	m.Range(func(k K, v V) bool {
		length++
		return true
	})

	return length
}

// Has reports whether key k is present in the map.
//
// Parameters:
//   - k: The key to check
//
// Returns:
//   - true if the key is in the map, false otherwise
func (m *SafeMap[K, V]) Has(k K) bool {
	_, found := m.Load(k)
	return found
}

// amendLocked makes sure dirty exists and the published snapshot is marked
// amended, ahead of inserting a key that read does not have.
func (m *SafeMap[K, V]) amendLocked(read readOnly[K, V]) {
	if read.amended {
		return
	}

	m.dirtyLocked()
	m.read.store(readOnly[K, V]{m: read.m, amended: true})
}

// missLocked records a slow-path lookup and promotes dirty once the misses
// have paid for copying it.
func (m *SafeMap[K, V]) missLocked() {
	m.misses++
	if m.misses < len(m.dirty) {
		return
	}

	m.promoteLocked()
}

// promoteLocked publishes dirty as the new unamended snapshot.
func (m *SafeMap[K, V]) promoteLocked() readOnly[K, V] {
	read := readOnly[K, V]{m: m.dirty}
	m.read.store(read)
	m.dirty = nil
	m.misses = 0
	return read
}

// dirtyLocked builds dirty from the snapshot, expunging deleted entries and
// leaving them out.
func (m *SafeMap[K, V]) dirtyLocked() {
	if m.dirty != nil {
		return
	}

	read := m.read.load()
	m.dirty = make(map[K]*entry[V], len(read.m))
	for k, e := range read.m {
		if !e.tryExpungeLocked() {
			m.dirty[k] = e
		}
	}
}
