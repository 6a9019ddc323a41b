package interner

import (
	"path/filepath"

	"github.com/quillmark/world/errs"
)

// RootResolver supplies the on-disk root for package files. It is
// implemented by the package registry collaborator.
type RootResolver interface {
	// ResolvePackageRoot returns the directory holding the unpacked
	// package, fetching it if necessary.
	ResolvePackageRoot(spec PackageSpec) (string, error)
}

// PathResolution is the outcome of resolving a FileID: either a physical
// filesystem path or a rootless virtual path.
type PathResolution struct {
	// Path is the resolved physical path when Rootless is false.
	Path string
	// VPath is the virtual path when Rootless is true.
	VPath string
	// Rootless reports that the file has no physical location.
	Rootless bool
}

// MustPath returns the physical path, or an access-denied error for
// rootless files.
func (r PathResolution) MustPath() (string, error) {
	if r.Rootless {
		return "", errs.New(errs.CodeAccessDenied, r.VPath)
	}
	return r.Path, nil
}

// PathForID resolves a file id to a path. Package files consult the given
// resolver; a nil resolver makes package files rootless.
func PathForID(id FileID, resolver RootResolver) (PathResolution, error) {
	key := lookup(id)
	switch key.kind {
	case rootWorkspace:
		root := WorkspaceRoot(key.ws)
		return PathResolution{Path: filepath.Join(root, filepath.FromSlash(key.vpath))}, nil
	case rootPackage:
		if resolver == nil {
			return PathResolution{VPath: key.vpath, Rootless: true}, nil
		}
		root, err := resolver.ResolvePackageRoot(key.pkg)
		if err != nil {
			return PathResolution{}, err
		}
		return PathResolution{Path: filepath.Join(root, filepath.FromSlash(key.vpath))}, nil
	default:
		return PathResolution{VPath: key.vpath, Rootless: true}, nil
	}
}
