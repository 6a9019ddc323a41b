package vfs

import (
	"path/filepath"
	"time"

	"github.com/benbjohnson/immutable"
)

// FileEntry is one changed file reported by a filesystem watcher.
type FileEntry struct {
	Path    string
	Content []byte
	Mtime   time.Time
}

// ChangeSet is a batch of filesystem changes: files whose fresh content was
// captured, and paths that disappeared.
type ChangeSet struct {
	Inserts []FileEntry
	Removes []string
}

// IsEmpty reports whether the change set carries no changes.
func (cs ChangeSet) IsEmpty() bool {
	return len(cs.Inserts) == 0 && len(cs.Removes) == 0
}

type pathComparer struct{}

func (pathComparer) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// notifyLayer mirrors content captured from filesystem events, keyed by
// physical path. It sits between the overlay and the backing access model:
// overlay shadows win, then watcher-captured content, then a real backing
// read. Like the overlay it is a persistent value, so forks sharing an old
// layer are unaffected by later events.
type notifyLayer struct {
	files *immutable.SortedMap[string, fileSnapshot]
}

func newNotifyLayer() *notifyLayer {
	return &notifyLayer{
		files: immutable.NewSortedMap[string, fileSnapshot](pathComparer{}),
	}
}

func (l *notifyLayer) get(path string) ([]byte, bool) {
	snap, ok := l.files.Get(filepath.Clean(path))
	if !ok {
		return nil, false
	}
	return snap.content, true
}

func (l *notifyLayer) apply(cs ChangeSet) *notifyLayer {
	files := l.files
	for _, p := range cs.Removes {
		files = files.Delete(filepath.Clean(p))
	}
	for _, e := range cs.Inserts {
		files = files.Set(filepath.Clean(e.Path), fileSnapshot{content: e.Content, mtime: e.Mtime})
	}
	return &notifyLayer{files: files}
}
