// Package vfs composes the path interner, the persistent overlay store and
// a backing access model into one content-by-file-id surface.
//
// A Vfs value is a view: forking one is O(1) and the fork shares the
// overlay snapshot, backing model, and parse cache by reference. Mutations
// (shadow edits, filesystem events) swap in new persistent values and bump
// the revision, so every previously forked view keeps observing exactly the
// state it was forked at, even while new edits keep arriving.
package vfs

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/interner"
)

// Vfs is one view of the workspace. The zero value is not usable; create
// views with New and derive more with Fork.
//
// Reads (Content, Source, IsFile) are safe from any goroutine. Mutations
// must be driven by the single owning session.
type Vfs struct {
	root     string
	resolver interner.RootResolver
	access   access.Model

	overlay *Overlay
	notify  *notifyLayer
	source  *SourceCache
	managed *entryMap
	rev     uint64
}

// Option configures Vfs creation.
type Option func(*Vfs)

// WithWorkspaceRoot sets the workspace root used to intern plain paths.
func WithWorkspaceRoot(root string) Option {
	return func(v *Vfs) { v.root = filepath.Clean(root) }
}

// WithRootResolver sets the resolver consulted for package file roots.
func WithRootResolver(r interner.RootResolver) Option {
	return func(v *Vfs) { v.resolver = r }
}

// New creates a Vfs over the given backing access model. The initial
// revision is 1.
func New(model access.Model, opts ...Option) *Vfs {
	v := &Vfs{
		access:  model,
		overlay: NewOverlay(),
		notify:  newNotifyLayer(),
		source:  NewSourceCache(),
		managed: newEntryMap(),
		rev:     1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Revision returns the monotonically increasing revision of this view.
func (v *Vfs) Revision() uint64 {
	return v.rev
}

// Fork returns a new view of the current state. The fork shares the
// overlay snapshot, notify layer, read cache and parse cache by reference;
// later mutations on either side never affect the other.
func (v *Vfs) Fork() *Vfs {
	forked := *v
	return &forked
}

// Sources exposes the shared parse cache for the eviction task.
func (v *Vfs) Sources() *SourceCache {
	return v.source
}

// Overlay exposes the current overlay snapshot.
func (v *Vfs) Overlay() *Overlay {
	return v.overlay
}

// FileIDForPath interns a physical path. Paths under the workspace root
// intern relative to it; other absolute paths use their parent directory as
// root; anything else is rootless.
func (v *Vfs) FileIDForPath(path string) interner.FileID {
	path = filepath.Clean(path)
	if v.root != "" {
		if rel, err := filepath.Rel(v.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return interner.WorkspaceFile(v.root, filepath.ToSlash(rel))
		}
	}
	if id, ok := interner.FileWithParentRoot(path); ok {
		return id
	}
	return interner.RootlessFile(filepath.ToSlash(path))
}

// Resolve maps a file id to a physical path or a rootless virtual path.
func (v *Vfs) Resolve(id interner.FileID) (interner.PathResolution, error) {
	return interner.PathForID(id, v.resolver)
}

// Content returns the bytes visible for id: the overlay shadow if present,
// else watcher-captured content, else a backing read. Backing reads are
// cached per revision with at-most-once semantics, so concurrent readers of
// a published view never duplicate I/O. Errors propagate the access
// model's kind verbatim and are scoped to the one file.
func (v *Vfs) Content(id interner.FileID) ([]byte, error) {
	if content, ok := v.overlay.Get(id); ok {
		return content, nil
	}
	cell := v.managed.cell(id)
	cell.once.Do(func() {
		cell.data, cell.err = v.readBacking(id)
	})
	return cell.data, cell.err
}

func (v *Vfs) readBacking(id interner.FileID) ([]byte, error) {
	res, err := v.Resolve(id)
	if err != nil {
		return nil, err
	}
	path, err := res.MustPath()
	if err != nil {
		return nil, err
	}
	if content, ok := v.notify.get(path); ok {
		return content, nil
	}
	return v.access.Content(path)
}

// IsFile reports whether id is visible as a regular file.
func (v *Vfs) IsFile(id interner.FileID) (bool, error) {
	if _, ok := v.overlay.Get(id); ok {
		return true, nil
	}
	res, err := v.Resolve(id)
	if err != nil {
		return false, err
	}
	if res.Rootless {
		return false, nil
	}
	if _, ok := v.notify.get(res.Path); ok {
		return true, nil
	}
	return v.access.IsFile(res.Path)
}

// Source returns the parsed source for id, memoized by content fingerprint
// in the shared parse cache.
func (v *Vfs) Source(id interner.FileID) (*Source, error) {
	content, err := v.Content(id)
	if err != nil {
		return nil, err
	}
	return v.source.get(id, content, v.rev)
}

// AddShadow shadows a physical path with in-memory content and publishes a
// new revision.
func (v *Vfs) AddShadow(path string, content []byte) interner.FileID {
	id := v.FileIDForPath(path)
	v.AddShadowByID(id, content)
	return id
}

// AddShadowByID shadows a file id directly. Used for untitled files that
// have no physical path.
func (v *Vfs) AddShadowByID(id interner.FileID, content []byte) {
	v.overlay = v.overlay.Set(id, content)
	v.bump()
}

// RemoveShadow drops the shadow for a physical path, reverting visibility
// to the backing content.
func (v *Vfs) RemoveShadow(path string) {
	v.RemoveShadowByID(v.FileIDForPath(path))
}

// RemoveShadowByID drops the shadow for a file id.
func (v *Vfs) RemoveShadowByID(id interner.FileID) {
	v.overlay = v.overlay.Delete(id)
	v.bump()
}

// ClearShadows drops every shadow at once.
func (v *Vfs) ClearShadows() {
	v.overlay = NewOverlay()
	v.bump()
}

// ShadowIDs returns the ids of all shadowed files.
func (v *Vfs) ShadowIDs() []interner.FileID {
	return v.overlay.IDs()
}

// Mtime returns the visible modification time for id: the shadow write time
// when shadowed, else the backing file's mtime.
func (v *Vfs) Mtime(id interner.FileID) (time.Time, error) {
	if mt, ok := v.overlay.Mtime(id); ok {
		return mt, nil
	}
	res, err := v.Resolve(id)
	if err != nil {
		return time.Time{}, err
	}
	path, err := res.MustPath()
	if err != nil {
		return time.Time{}, err
	}
	return v.access.Mtime(path)
}

// NotifyChanges folds a batch of filesystem events into the view and
// publishes a new revision. An empty change set is a no-op.
func (v *Vfs) NotifyChanges(cs ChangeSet) {
	if cs.IsEmpty() {
		return
	}
	v.notify = v.notify.apply(cs)
	v.bump()
}

// bump publishes a new revision: the persistent values were already
// swapped, so dropping the read cache is all that is needed to invalidate
// stale backing reads.
func (v *Vfs) bump() {
	v.rev++
	v.managed = newEntryMap()
}

// entryMap is the per-revision backing read cache. Forks of the same
// revision share one map so each file is read at most once no matter how
// many goroutines race on it.
type entryMap struct {
	mu      sync.Mutex
	entries map[interner.FileID]*contentCell
}

type contentCell struct {
	once sync.Once
	data []byte
	err  error
}

func newEntryMap() *entryMap {
	return &entryMap{entries: make(map[interner.FileID]*contentCell)}
}

func (m *entryMap) cell(id interner.FileID) *contentCell {
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.entries[id]
	if !ok {
		cell = &contentCell{}
		m.entries[id] = cell
	}
	return cell
}
