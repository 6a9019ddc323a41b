// Package access defines the capability interface for reading backing file
// content, together with provider implementations: local disk, in-memory
// maps, unpacked package archives, and editor-proxied reads.
//
// Access models sit below the overlay store: they are consulted only when no
// in-memory shadow exists for a file. All providers are read-only and cheap
// to share between virtual-file-system forks.
package access

import "time"

// Kind represents the underlying type of access model implementation.
type Kind int

const (
	// KindUnknown indicates the access model kind is unknown or unspecified.
	KindUnknown Kind = iota
	// KindLocal indicates a local disk-backed model.
	KindLocal
	// KindMemory indicates an in-memory model.
	KindMemory
	// KindArchive indicates a model over an unpacked package archive.
	KindArchive
	// KindProxy indicates reads proxied to a remote editor process.
	KindProxy
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindMemory:
		return "memory"
	case KindArchive:
		return "archive"
	case KindProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// Model is the capability interface every backing store implements.
//
// Implementations must be read-only and safe for concurrent use. Content
// never panics; every failure is a tagged errs value so one unreadable file
// never blocks unrelated files from being analyzed.
type Model interface {
	// Content returns the bytes of the file at the given physical path.
	Content(path string) ([]byte, error)

	// IsFile reports whether the path exists and is a regular file.
	IsFile(path string) (bool, error)

	// Mtime returns the modification time of the file.
	Mtime(path string) (time.Time, error)

	// Kind returns the underlying access model kind.
	Kind() Kind
}
