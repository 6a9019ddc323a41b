// Package interner maps (root, virtual path) pairs to compact integer file
// ids. Ids are assigned once per distinct pair, process-wide, and are never
// recycled even after the underlying path stops existing -- the assumption is
// that the total number of paths ever looked at stays small.
//
// Every FileID is tagged as belonging either to an interned workspace root
// or to a versioned package. Workspace roots are themselves interned into a
// compact numeric id on first use.
package interner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// FileID is a handle to an interned (root, virtual path) pair. The same
// logical path always yields the same FileID for the lifetime of the
// process. The zero value is not a valid id.
type FileID int32

// WorkspaceID identifies an interned workspace root.
type WorkspaceID uint16

// PackageSpec identifies a versioned package.
type PackageSpec struct {
	Namespace string
	Name      string
	Version   string
}

// String renders the spec in "@namespace/name:version" form.
func (s PackageSpec) String() string {
	return fmt.Sprintf("@%s/%s:%s", s.Namespace, s.Name, s.Version)
}

// rootKind discriminates the owner of an interned file.
type rootKind uint8

const (
	rootNone rootKind = iota
	rootWorkspace
	rootPackage
)

type fileKey struct {
	kind  rootKind
	ws    WorkspaceID
	pkg   PackageSpec
	vpath string
}

type fileEntry struct {
	key fileKey
}

// The process-wide interner. Append-only; lookups by id after interning
// never fail.
var global = struct {
	mu      sync.RWMutex
	fileIDs map[fileKey]FileID
	files   []fileEntry

	wsIDs map[string]WorkspaceID
	roots []string
}{
	fileIDs: make(map[fileKey]FileID),
	wsIDs:   make(map[string]WorkspaceID),
}

// VPath cleans a virtual path and roots it at "/", using forward slashes.
func VPath(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// InternWorkspace returns the WorkspaceID for a root path, creating one on
// first use. Roots are compared after cleaning.
func InternWorkspace(root string) WorkspaceID {
	root = filepath.Clean(root)

	// Check with a read lock first; interning a new root is rare.
	global.mu.RLock()
	id, ok := global.wsIDs[root]
	global.mu.RUnlock()
	if ok {
		return id
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if id, ok := global.wsIDs[root]; ok {
		return id
	}
	n := len(global.roots)
	if n > int(^WorkspaceID(0)) {
		panic("interner: out of workspace ids")
	}
	id = WorkspaceID(n)
	global.wsIDs[root] = id
	global.roots = append(global.roots, root)
	return id
}

// WorkspaceRoot returns the root path for an interned workspace id.
func WorkspaceRoot(id WorkspaceID) string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	if int(id) >= len(global.roots) {
		panic(fmt.Sprintf("interner: invalid workspace id %d", id))
	}
	return global.roots[id]
}

func intern(key fileKey) FileID {
	global.mu.RLock()
	id, ok := global.fileIDs[key]
	global.mu.RUnlock()
	if ok {
		return id
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if id, ok := global.fileIDs[key]; ok {
		return id
	}
	id = FileID(len(global.files) + 1)
	global.fileIDs[key] = id
	global.files = append(global.files, fileEntry{key: key})
	return id
}

func lookup(id FileID) fileKey {
	global.mu.RLock()
	defer global.mu.RUnlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(global.files) {
		panic(fmt.Sprintf("interner: invalid file id %d", id))
	}
	return global.files[idx].key
}

// WorkspaceFile interns a file under a workspace root.
func WorkspaceFile(root, vpath string) FileID {
	return intern(fileKey{
		kind:  rootWorkspace,
		ws:    InternWorkspace(root),
		vpath: VPath(vpath),
	})
}

// PackageFile interns a file inside a versioned package.
func PackageFile(spec PackageSpec, vpath string) FileID {
	return intern(fileKey{
		kind:  rootPackage,
		pkg:   spec,
		vpath: VPath(vpath),
	})
}

// RootlessFile interns a file with no physical root. Such files cannot be
// read through a backing access model; only overlay shadows make them
// visible.
func RootlessFile(vpath string) FileID {
	return intern(fileKey{kind: rootNone, vpath: VPath(vpath)})
}

// FileWithParentRoot interns an absolute path using its parent directory as
// the workspace root. Returns false for relative paths.
func FileWithParentRoot(p string) (FileID, bool) {
	if !filepath.IsAbs(p) {
		return 0, false
	}
	dir, name := filepath.Split(filepath.Clean(p))
	if name == "" {
		return 0, false
	}
	return WorkspaceFile(filepath.Clean(dir), name), true
}

// VPathOf returns the interned virtual path for an id.
func VPathOf(id FileID) string {
	return lookup(id).vpath
}

// Package returns the package spec of a package file.
func Package(id FileID) (PackageSpec, bool) {
	key := lookup(id)
	if key.kind != rootPackage {
		return PackageSpec{}, false
	}
	return key.pkg, true
}

// Workspace returns the workspace id of a workspace file.
func Workspace(id FileID) (WorkspaceID, bool) {
	key := lookup(id)
	if key.kind != rootWorkspace {
		return 0, false
	}
	return key.ws, true
}

// Display renders an id for logs: the resolved path for workspace files,
// "@ns/name:ver/vpath" for package files, and the bare virtual path
// otherwise.
func Display(id FileID) string {
	key := lookup(id)
	switch key.kind {
	case rootWorkspace:
		return filepath.Join(WorkspaceRoot(key.ws), filepath.FromSlash(key.vpath))
	case rootPackage:
		return key.pkg.String() + key.vpath
	default:
		return key.vpath
	}
}
