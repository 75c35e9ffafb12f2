// Package cachedmap provides a two-tier map for read-heavy workloads. Writes
// go to a lock-guarded hash table; reads are served from a read cache of
// per-key cells that is only restructured on a cache miss, so steady-state
// reads of known keys never contend with each other for the table lock.
//
// Compared with safemap, cachedmap trades the lock-free snapshot for a
// simpler design: the cache keeps a cell per key ever read, including keys
// known to be absent, until Clear.
package cachedmap

import (
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/syncutils/hashtable"
)

// cell caches the current value of one key. A nil pointer means the key is
// known to be absent.
type cell[V any] struct {
	p atomic.Pointer[V]
}

// readCache maps keys to cells. Its lock is taken exclusively only to add
// cells or drop the whole cache.
type readCache[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*cell[V]
}

func (r *readCache[K, V]) get(k K) (*cell[V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.m[k]
	return c, ok
}

// tryStore refreshes the cell for k if one exists. Keys that were never read
// are not cached on write.
func (r *readCache[K, V]) tryStore(k K, v *V) {
	if c, ok := r.get(k); ok {
		c.p.Store(v)
	}
}

func (r *readCache[K, V]) clear() {
	r.mu.Lock()
	r.m = make(map[K]*cell[V])
	r.mu.Unlock()
}

// CachedMap is a concurrent map with a read cache in front of a
// hashtable.HashTable. Writers are serialized among themselves; readers only
// take the cache lock exclusively on a miss. Stored values are never mutated
// in place, so values returned by Get are safe to read.
type CachedMap[K comparable, V any] struct {
	wmu   sync.Mutex
	read  readCache[K, V]
	write *hashtable.HashTable[K, *V]
}

// NewCachedMap returns an empty CachedMap.
//
// Returns:
//   - A pointer to a new CachedMap[K, V]
func NewCachedMap[K comparable, V any]() *CachedMap[K, V] {
	return &CachedMap[K, V]{
		read:  readCache[K, V]{m: make(map[K]*cell[V])},
		write: hashtable.NewHashTable[K, *V](),
	}
}

// Put inserts or replaces the value for k.
//
// Parameters:
//   - k: The key to write
//   - v: The value to associate with k
//
// Returns:
//   - hashtable.PutNew if k was absent, hashtable.PutOverwrite otherwise
func (c *CachedMap[K, V]) Put(k K, v V) hashtable.PutStatus {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	val := &v
	status := c.write.Put(k, val)
	c.read.tryStore(k, val)
	return status
}

// TryPut inserts v only if k is absent. The cache is refreshed only when the
// value was actually written.
//
// Parameters:
//   - k: The key to write
//   - v: The value to associate with k
//
// Returns:
//   - hashtable.PutNew if k was inserted, hashtable.PutSkipped otherwise
func (c *CachedMap[K, V]) TryPut(k K, v V) hashtable.PutStatus {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	val := &v
	status := c.write.TryPut(k, val)
	if status == hashtable.PutNew {
		c.read.tryStore(k, val)
	}

	return status
}

// Get returns the value for k. On a cache miss the table is consulted and
// the result, present or absent, is cached.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (c *CachedMap[K, V]) Get(k K) (V, bool) {
	var val *V
	if cl, ok := c.read.get(k); ok {
		val = cl.p.Load()
	} else {
		val = c.fill(k)
	}

	if val == nil {
		var empty V
		return empty, false
	}

	return *val, true
}

// fill reads k from the table and caches it. Holding the cache lock across
// the table read orders it with any writer's cache refresh.
func (c *CachedMap[K, V]) fill(k K) *V {
	c.read.mu.Lock()
	defer c.read.mu.Unlock()

	if cl, ok := c.read.m[k]; ok {
		return cl.p.Load()
	}

	val, _ := c.write.Get(k)
	cl := &cell[V]{}
	cl.p.Store(val)
	c.read.m[k] = cl
	return val
}

// Remove deletes k and returns the value it held.
//
// Parameters:
//   - k: The key to remove
//
// Returns:
//   - The removed value, or the zero value of V if k was absent
//   - true if k was present, false otherwise
func (c *CachedMap[K, V]) Remove(k K) (V, bool) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	val, ok := c.write.Remove(k)
	if !ok {
		var empty V
		return empty, false
	}

	c.read.tryStore(k, nil)
	return *val, true
}

// Len returns the number of stored entries.
func (c *CachedMap[K, V]) Len() int {
	return c.write.Len()
}

// Clear empties the map and drops the read cache.
//
// Returns:
//   - Every entry the map held at the time of the call
func (c *CachedMap[K, V]) Clear() map[K]V {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	old := c.write.Clear()
	c.read.clear()

	raw := make(map[K]V, len(old))
	for k, v := range old {
		raw[k] = *v
	}

	return raw
}
