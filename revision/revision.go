// Package revision tracks historical world-states by revision number and
// leases them to in-flight readers.
//
// A Manager owns an append-only list of slots, one per materialized
// revision, plus a multiset of outstanding leases. The retained minimum is
// the smallest leased revision, or the newest slot when nothing is leased;
// everything below it is reclaimable. The manager's mutating operations are
// driven by a single owning session task; published slot payloads are
// immutable and may be read from any goroutine.
package revision

import "fmt"

// Slot pairs a payload with the revision it was materialized at. Published
// slots are shared by reference and never mutated in place.
type Slot[T any] struct {
	Revision uint64
	Data     T
}

// Lock is a lease on a revision. It records the revision that was current
// when the lease was taken and, once known, the revision the holder actually
// ended up reading. A lock must be released exactly once via
// Manager.Unlock.
type Lock struct {
	estimated uint64
	used      uint64
	resolved  bool
}

// Access records the revision the holder resolved to. It may be called at
// most once; a second call panics.
func (l *Lock) Access(rev uint64) {
	if l.resolved {
		panic(fmt.Sprintf("revision: lock already resolved to %d", l.used))
	}
	l.used = rev
	l.resolved = true
}

// Revision returns the resolved revision if Access was called, else the
// estimated revision the lease was taken at.
func (l *Lock) Revision() uint64 {
	if l.resolved {
		return l.used
	}
	return l.estimated
}

// Manager is a slot store keyed by monotonically increasing revision
// numbers, with lease accounting and GC.
type Manager[T any] struct {
	estimated uint64
	locked    map[uint64]int
	slots     []*Slot[T]
}

// NewManager creates an empty manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{locked: make(map[uint64]int)}
}

// Lock leases a known revision: it takes a lease at the current estimate and
// immediately resolves it to used.
func (m *Manager[T]) Lock(used uint64) *Lock {
	l := m.LockEstimated()
	l.Access(used)
	return l
}

// LockEstimated leases the manager's current estimated revision. The holder
// resolves the lease later via Lock.Access once the actual revision is
// known.
func (m *Manager[T]) LockEstimated() *Lock {
	m.locked[m.estimated]++
	return &Lock{estimated: m.estimated}
}

// FindRevision returns the slot for rev, materializing it if absent.
//
// When a slot with exactly rev exists it is returned unchanged, making
// repeated calls idempotent. Otherwise build is invoked with the closest
// slot whose revision is below rev (nil when none exists) so the payload can
// be derived incrementally, and the new slot is appended. The reference to
// the closest slot stays live for the whole build; a concurrent GC sweep can
// unindex it but never invalidate it.
func (m *Manager[T]) FindRevision(rev uint64, build func(prev *Slot[T]) T) *Slot[T] {
	var closest *Slot[T]
	for _, s := range m.slots {
		if s.Revision <= rev && (closest == nil || s.Revision > closest.Revision) {
			closest = s
		}
	}
	if closest != nil && closest.Revision == rev {
		return closest
	}

	slot := &Slot[T]{Revision: rev, Data: build(closest)}
	m.slots = append(m.slots, slot)
	if rev > m.estimated {
		m.estimated = rev
	}
	return slot
}

// Unlock releases a lease. When this was the last lease on its revision it
// returns the new retained minimum: the smallest still-leased revision, or
// the newest slot revision when nothing remains leased. The second return is
// false when other leases on the same revision are still outstanding, and
// also when the last lease goes while the manager holds no slots, since
// there is then no revision worth retaining. Unlocking a revision that holds
// no lease panics.
func (m *Manager[T]) Unlock(l *Lock) (uint64, bool) {
	rev := l.estimated
	cnt, ok := m.locked[rev]
	if !ok {
		panic(fmt.Sprintf("revision: %d is not locked", rev))
	}
	cnt--
	if cnt > 0 {
		m.locked[rev] = cnt
		return 0, false
	}
	delete(m.locked, rev)

	min, held := uint64(0), false
	for r := range m.locked {
		if !held || r < min {
			min, held = r, true
		}
	}
	if held {
		return min, true
	}
	for _, s := range m.slots {
		if !held || s.Revision > min {
			min, held = s.Revision, true
		}
	}
	return min, held
}

// GC drops every slot below minRev from the index. Shared holders of a
// dropped slot keep it alive until they release it.
func (m *Manager[T]) GC(minRev uint64) {
	kept := m.slots[:0]
	for _, s := range m.slots {
		if s.Revision >= minRev {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(m.slots); i++ {
		m.slots[i] = nil
	}
	m.slots = kept
}

// Clear drops every slot regardless of revision. Leases are unaffected.
func (m *Manager[T]) Clear() {
	m.slots = nil
}

// Len returns the number of indexed slots.
func (m *Manager[T]) Len() int {
	return len(m.slots)
}
