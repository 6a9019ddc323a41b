package errs

// Code represents a specific error condition.
// Codes are string-based for debuggability and natural log serialization.
type Code string

const (
	// File access errors. These are always recoverable and scoped to one
	// file; an unreadable file never blocks unrelated files from being
	// analyzed.

	// CodeNotFound indicates a requested file does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAccessDenied indicates the file cannot be read, either because
	// permission was denied or because the path has no physical root.
	CodeAccessDenied Code = "ACCESS_DENIED"

	// CodeIsDirectory indicates a directory was found where a file was
	// expected.
	CodeIsDirectory Code = "IS_DIRECTORY"

	// CodeInvalidUTF8 indicates file content could not be decoded as text.
	CodeInvalidUTF8 Code = "INVALID_UTF8"

	// CodePackageFetch indicates a package archive could not be downloaded
	// or unpacked.
	CodePackageFetch Code = "PACKAGE_FETCH_FAILED"

	// CodeOther indicates an unclassified file access failure.
	CodeOther Code = "OTHER"

	// System errors.

	// CodeInternal indicates a broken internal invariant. Errors with this
	// code must never be downgraded to a user-facing condition.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Class separates errors by how callers may react to them.
type Class int

const (
	// ClassFile marks an error that is recoverable at the granularity of a
	// single file or artifact. The requesting analysis pass decides how to
	// report it; the caching core never interprets its meaning.
	ClassFile Class = iota

	// ClassInternal marks a fatal internal-error condition. These are
	// intended to fail loudly during development rather than corrupt cache
	// state silently.
	ClassInternal
)

// String returns a string representation of the Class.
func (c Class) String() string {
	switch c {
	case ClassFile:
		return "file"
	case ClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// classOf maps a code to its default class.
func classOf(code Code) Class {
	if code == CodeInternal {
		return ClassInternal
	}
	return ClassFile
}
