package main

import (
	"slices"
	"sync"

	"github.com/cyberinferno/syncutils/cachedmap"
	"github.com/cyberinferno/syncutils/hashtable"
	"github.com/cyberinferno/syncutils/safemap"
	"github.com/puzpuzpuz/xsync/v3"
)

// store is the operation set every benchmark target supports.
type store interface {
	Load(k string) (int, bool)
	Store(k string, v int)
	Delete(k string)
}

var targetFactories = map[string]func() store{
	"safemap":   func() store { return &safeMapStore{m: safemap.NewSafeMap[string, int]()} },
	"syncmap":   func() store { return &syncMapStore{} },
	"xsync":     func() store { return &xsyncStore{m: xsync.NewMapOf[string, int]()} },
	"hashtable": func() store { return &hashTableStore{h: hashtable.NewHashTable[string, int]()} },
	"cachedmap": func() store { return &cachedMapStore{c: cachedmap.NewCachedMap[string, int]()} },
}

// targetNames returns the registered target names in sorted order.
func targetNames() []string {
	names := make([]string, 0, len(targetFactories))
	for name := range targetFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type safeMapStore struct{ m *safemap.SafeMap[string, int] }

func (s *safeMapStore) Load(k string) (int, bool) { return s.m.Load(k) }
func (s *safeMapStore) Store(k string, v int)     { s.m.Store(k, v) }
func (s *safeMapStore) Delete(k string)           { s.m.Delete(k) }

type syncMapStore struct{ m sync.Map }

func (s *syncMapStore) Load(k string) (int, bool) {
	v, ok := s.m.Load(k)
	if !ok {
		return 0, false
	}
	return v.(int), true
}
func (s *syncMapStore) Store(k string, v int) { s.m.Store(k, v) }
func (s *syncMapStore) Delete(k string)       { s.m.Delete(k) }

type xsyncStore struct{ m *xsync.MapOf[string, int] }

func (s *xsyncStore) Load(k string) (int, bool) { return s.m.Load(k) }
func (s *xsyncStore) Store(k string, v int)     { s.m.Store(k, v) }
func (s *xsyncStore) Delete(k string)           { s.m.Delete(k) }

type hashTableStore struct{ h *hashtable.HashTable[string, int] }

func (s *hashTableStore) Load(k string) (int, bool) { return s.h.Get(k) }
func (s *hashTableStore) Store(k string, v int)     { s.h.Put(k, v) }
func (s *hashTableStore) Delete(k string)           { s.h.Remove(k) }

type cachedMapStore struct{ c *cachedmap.CachedMap[string, int] }

func (s *cachedMapStore) Load(k string) (int, bool) { return s.c.Get(k) }
func (s *cachedMapStore) Store(k string, v int)     { s.c.Put(k, v) }
func (s *cachedMapStore) Delete(k string)           { s.c.Remove(k) }
