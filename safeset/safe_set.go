// Package safeset provides a generic set safe for concurrent use, stored in
// a hashtable.HashTable keyed by element.
package safeset

import "github.com/cyberinferno/syncutils/hashtable"

// SafeSet is a thread-safe set that stores a collection of unique elements of
// comparable type T. It is safe for concurrent use by multiple goroutines.
type SafeSet[T comparable] struct {
	table *hashtable.HashTable[T, struct{}]
}

// NewSafeSet creates and returns a new empty SafeSet.
func NewSafeSet[T comparable]() *SafeSet[T] {
	return &SafeSet[T]{table: hashtable.NewHashTable[T, struct{}]()}
}

// Add adds an element to the set.
//
// Parameters:
//   - value: The element to add
//
// Returns:
//   - true if value was not already in the set
func (s *SafeSet[T]) Add(value T) bool {
	return s.table.TryPut(value, struct{}{}) == hashtable.PutNew
}

// Remove removes an element from the set.
//
// Parameters:
//   - value: The element to remove
//
// Returns:
//   - true if value was in the set
func (s *SafeSet[T]) Remove(value T) bool {
	_, ok := s.table.Remove(value)
	return ok
}

// Contains reports whether the set contains the given element.
//
// Parameters:
//   - value: The element to look up
//
// Returns:
//   - true if the set contains value, false otherwise
func (s *SafeSet[T]) Contains(value T) bool {
	_, ok := s.table.Get(value)
	return ok
}

// Size returns the number of elements in the set.
func (s *SafeSet[T]) Size() int {
	return s.table.Len()
}

// Intersection returns a new set containing only the elements that are present
// in both this set and the other set. Each set is read under its own lock, so
// the result reflects no single instant if either set changes meanwhile.
//
// Parameters:
//   - other: The other set to intersect with
//
// Returns:
//   - A new SafeSet containing the intersection of the two sets
func (s *SafeSet[T]) Intersection(other *SafeSet[T]) *SafeSet[T] {
	result := NewSafeSet[T]()
	for _, k := range s.values() {
		if other.Contains(k) {
			result.Add(k)
		}
	}
	return result
}

// Union returns a new set containing all elements that are in this set, the
// other set, or both.
//
// Parameters:
//   - other: The other set to union with
//
// Returns:
//   - A new SafeSet containing the union of the two sets
func (s *SafeSet[T]) Union(other *SafeSet[T]) *SafeSet[T] {
	result := NewSafeSet[T]()
	add := func(k T, _ struct{}) { result.Add(k) }
	s.table.ForEach(add)
	other.table.ForEach(add)
	return result
}

// Reset removes all elements from the set, leaving it empty.
//
// Returns:
//   - The elements the set held, in no particular order
func (s *SafeSet[T]) Reset() []T {
	old := s.table.Clear()
	values := make([]T, 0, len(old))
	for k := range old {
		values = append(values, k)
	}
	return values
}

// values copies the elements out so callers can consult other sets without
// holding this set's lock.
func (s *SafeSet[T]) values() []T {
	values := make([]T, 0, s.table.Len())
	s.table.ForEach(func(k T, _ struct{}) {
		values = append(values, k)
	})
	return values
}

// Range calls the function f for each element in the set. Iteration stops if f
// returns false. f runs under the set's read lock and must not modify the set.
//
// Parameters:
//   - f: Function called for each element; return false to stop iteration
func (s *SafeSet[T]) Range(f func(value T) bool) {
	stopped := false
	s.table.ForEach(func(k T, _ struct{}) {
		if !stopped && !f(k) {
			stopped = true
		}
	})
}
