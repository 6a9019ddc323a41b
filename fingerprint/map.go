package fingerprint

import (
	"runtime"
	"sync"
)

// maxShards is a global upper bound on the shard count. Too many shards and
// the memory overhead is unacceptable.
const maxShards = 512

// defaultShards is 2x the number of CPUs rounded up to a power of two, which
// measured best for contended workloads.
func defaultShards() uint32 {
	n := uint32(runtime.GOMAXPROCS(0))
	size := nextPow2(n) * 2
	if size > maxShards {
		size = maxShards
	}
	if size == 0 {
		size = 1
	}
	return size
}

func nextPow2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

type mapShard[V any] struct {
	mu      sync.RWMutex
	entries map[Fingerprint]mapEntry[V]
}

type mapEntry[V any] struct {
	value      V
	lastAccess uint64
}

// Map is a sharded map keyed by Fingerprint. A fingerprint routes to shard
// lo32 & (N-1), bounding worst-case lock contention to 1/N. Entries record
// the revision of their last access so stale ones can be evicted.
//
// If fingerprints are not produced by a hash function the routing is not
// guaranteed to distribute evenly.
type Map[V any] struct {
	mask   uint32
	shards []mapShard[V]
}

// NewMap creates a Map with the default shard count.
func NewMap[V any]() *Map[V] {
	return NewMapWithShards[V](defaultShards())
}

// NewMapWithShards creates a Map with the given shard count, rounded up to a
// power of two and capped at the global bound.
func NewMapWithShards[V any](shards uint32) *Map[V] {
	n := nextPow2(shards)
	if n > maxShards {
		n = maxShards
	}
	m := &Map[V]{
		mask:   n - 1,
		shards: make([]mapShard[V], n),
	}
	for i := range m.shards {
		m.shards[i].entries = make(map[Fingerprint]mapEntry[V])
	}
	return m
}

func (m *Map[V]) shard(fg Fingerprint) *mapShard[V] {
	return &m.shards[fg.Lower32()&m.mask]
}

// Load returns the value stored under fg and stamps its last access with the
// given revision.
func (m *Map[V]) Load(fg Fingerprint, rev uint64) (V, bool) {
	s := m.shard(fg)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fg]
	if !ok {
		var zero V
		return zero, false
	}
	if e.lastAccess < rev {
		e.lastAccess = rev
		s.entries[fg] = e
	}
	return e.value, true
}

// Store sets the value under fg, stamping it with the given revision.
func (m *Map[V]) Store(fg Fingerprint, rev uint64, value V) {
	s := m.shard(fg)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fg] = mapEntry[V]{value: value, lastAccess: rev}
}

// LoadOrStore returns the existing value under fg if present; otherwise it
// stores and returns value. loaded reports whether the value was present.
func (m *Map[V]) LoadOrStore(fg Fingerprint, rev uint64, value V) (actual V, loaded bool) {
	s := m.shard(fg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[fg]; ok {
		if e.lastAccess < rev {
			e.lastAccess = rev
			s.entries[fg] = e
		}
		return e.value, true
	}
	s.entries[fg] = mapEntry[V]{value: value, lastAccess: rev}
	return value, false
}

// Contains reports whether fg is present without stamping an access.
func (m *Map[V]) Contains(fg Fingerprint) bool {
	s := m.shard(fg)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[fg]
	return ok
}

// Len returns the total number of entries across all shards.
func (m *Map[V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Evict drops entries whose last access is more than maxAge revisions behind
// curr. Safe to run concurrently with readers; it takes one shard lock at a
// time.
func (m *Map[V]) Evict(curr uint64, maxAge uint64) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for fg, e := range s.entries {
			if curr-min(e.lastAccess, curr) > maxAge {
				delete(s.entries, fg)
			}
		}
		s.mu.Unlock()
	}
}
