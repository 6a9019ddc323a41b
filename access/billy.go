package access

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/quillmark/world/errs"
)

// billyModel adapts a billy.Filesystem to the Model capability set. Local,
// Memory and Archive models all share this adapter and differ only in the
// wrapped filesystem and reported kind.
type billyModel struct {
	bfs  billy.Filesystem
	kind Kind
}

// NewLocal creates a go-billy-backed local disk model rooted at the
// filesystem root.
func NewLocal() Model {
	return &billyModel{bfs: osfs.New("/"), kind: KindLocal}
}

// NewMemory creates an empty in-memory model. Useful for tests and embedded
// use.
func NewMemory() Model {
	return &billyModel{bfs: memfs.New(), kind: KindMemory}
}

// NewMemoryWith creates an in-memory model seeded from a path-to-content
// map.
func NewMemoryWith(files map[string][]byte) Model {
	bfs := memfs.New()
	for p, content := range files {
		writeAll(bfs, p, content)
	}
	return &billyModel{bfs: bfs, kind: KindMemory}
}

// NewArchive wraps an already-unpacked package archive filesystem. The
// filesystem is owned by the package registry collaborator; this model only
// reads from it.
func NewArchive(bfs billy.Filesystem) Model {
	return &billyModel{bfs: bfs, kind: KindArchive}
}

func writeAll(bfs billy.Filesystem, p string, content []byte) {
	f, err := bfs.Create(p)
	if err != nil {
		return
	}
	_, _ = f.Write(content)
	_ = f.Close()
}

func normalize(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

func (m *billyModel) Content(path string) ([]byte, error) {
	path = normalize(path)
	info, err := m.bfs.Stat(path)
	if err != nil {
		return nil, mapFSError(err, path)
	}
	if info.IsDir() {
		return nil, errs.New(errs.CodeIsDirectory, path)
	}
	f, err := m.bfs.Open(path)
	if err != nil {
		return nil, mapFSError(err, path)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, mapFSError(err, path)
	}
	return data, nil
}

func (m *billyModel) IsFile(path string) (bool, error) {
	path = normalize(path)
	info, err := m.bfs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mapFSError(err, path)
	}
	return !info.IsDir(), nil
}

func (m *billyModel) Mtime(path string) (time.Time, error) {
	path = normalize(path)
	info, err := m.bfs.Stat(path)
	if err != nil {
		return time.Time{}, mapFSError(err, path)
	}
	return info.ModTime(), nil
}

func (m *billyModel) Kind() Kind {
	return m.kind
}

// mapFSError converts os/billy errors into the tagged error taxonomy,
// propagating the underlying kind verbatim.
func mapFSError(err error, path string) error {
	switch {
	case os.IsNotExist(err):
		return errs.Wrap(err, errs.CodeNotFound, path)
	case os.IsPermission(err):
		return errs.Wrap(err, errs.CodeAccessDenied, path)
	default:
		return errs.Wrap(err, errs.CodeOther, path)
	}
}

// Compile-time interface checks.
var _ Model = (*billyModel)(nil)
