package world

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/quillmark/world/errs"
)

// Graph memoizes artifacts derived from one Snapshot, indexed by key type.
// Each key type is computed at most once per graph; racing callers block on
// the winner and observe the identical outcome, errors included. The graph
// is safe for concurrent use.
type Graph struct {
	// Snap is the snapshot every computation reads from.
	Snap *Snapshot

	mu      sync.Mutex
	entries map[reflect.Type]*computeCell
}

// computeCell is a run-once slot for one key type. done flips only after
// value and err are written, so lock-free readers of a done cell are safe.
type computeCell struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
	err   error
}

func (c *computeCell) getOrInit(f func() (any, error)) (any, error) {
	if c.done.Load() {
		return c.value, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done.Load() {
		return c.value, c.err
	}
	c.value, c.err = f()
	c.done.Store(true)
	return c.value, c.err
}

func (c *computeCell) trySet(value any, err error) bool {
	if c.done.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done.Load() {
		return false
	}
	c.value, c.err = value, err
	c.done.Store(true)
	return true
}

func (c *computeCell) get() (any, error, bool) {
	if !c.done.Load() {
		return nil, nil, false
	}
	return c.value, c.err, true
}

// NewGraph binds a fresh graph to a snapshot.
func NewGraph(snap *Snapshot) *Graph {
	return &Graph{Snap: snap, entries: make(map[reflect.Type]*computeCell)}
}

// Snapshot clones the graph over the same snapshot. Already-resolved and
// in-flight entries are shared with the clone; entries first touched after
// the split are independent.
func (g *Graph) Snapshot() *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	entries := make(map[reflect.Type]*computeCell, len(g.entries))
	for t, c := range g.entries {
		entries[t] = c
	}
	return &Graph{Snap: g.Snap, entries: entries}
}

func (g *Graph) cell(t reflect.Type) *computeCell {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.entries[t]
	if !ok {
		c = &computeCell{}
		g.entries[t] = c
	}
	return c
}

func keyType[K any]() reflect.Type {
	return reflect.TypeOf((*K)(nil)).Elem()
}

// cast unwraps a cell outcome to the caller's value type. A mismatch means
// two key types collided or a key was provided with the wrong value type;
// that is an internal bug, not a runtime condition.
func cast[K, V any](value any, err error) (V, error) {
	if err != nil {
		var zero V
		return zero, err
	}
	v, ok := value.(V)
	if !ok {
		panic(fmt.Sprintf("world: entry %v holds %T, not %v", keyType[K](), value, keyType[V]()))
	}
	return v, nil
}

// Compute returns the artifact for key type K, running f at most once per
// graph. Concurrent callers for the same K block until the first computation
// finishes and then share its outcome; a computation that failed stays
// failed for the graph's lifetime. f may recursively compute other key
// types, but never K itself.
func Compute[K, V any](g *Graph, f func(*Graph) (V, error)) (V, error) {
	value, err := g.cell(keyType[K]()).getOrInit(func() (any, error) {
		v, err := f(g)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	return cast[K, V](value, err)
}

// Provide seeds the entry for key type K with a precomputed outcome. It
// reports false when the entry was already resolved, in which case the
// existing outcome stands.
func Provide[K, V any](g *Graph, value V, err error) bool {
	if err != nil {
		return g.cell(keyType[K]()).trySet(nil, err)
	}
	return g.cell(keyType[K]()).trySet(value, nil)
}

// MustProvide seeds the entry for key type K and panics when it was already
// resolved.
func MustProvide[K, V any](g *Graph, value V, err error) {
	if !Provide[K](g, value, err) {
		panic(fmt.Sprintf("world: entry %v was already resolved", keyType[K]()))
	}
}

// Get returns the resolved outcome for key type K without computing. The
// last return is false when the entry has not resolved yet.
func Get[K, V any](g *Graph) (V, error, bool) {
	value, err, ok := g.cell(keyType[K]()).get()
	if !ok {
		var zero V
		return zero, nil, false
	}
	v, err := cast[K, V](value, err)
	return v, err, true
}

// MustGet returns the resolved outcome for key type K, failing with an
// internal error when nothing has resolved it.
func MustGet[K, V any](g *Graph) (V, error) {
	v, err, ok := Get[K, V](g)
	if !ok {
		var zero V
		return zero, errs.Newf(errs.CodeInternal, "computation not found: %v", keyType[K]())
	}
	return v, err
}
