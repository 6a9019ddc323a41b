package errs

import (
	stderrors "errors"
	"io/fs"
)

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// CodeOf extracts the Code from an error.
// Returns CodeOther if the error is nil or carries no code.
//
// This function handles the error chain and extracts the code from the
// outermost Error in the chain.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOther
	}
	var e Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return CodeOther
}

// IsFileError reports whether err is recoverable at the granularity of a
// single file. Nil errors and unclassified errors are treated as file
// errors; only CodeInternal escalates.
func IsFileError(err error) bool {
	if err == nil {
		return true
	}
	var e Error
	if stderrors.As(err, &e) {
		return e.Class() == ClassFile
	}
	return true
}

// FromFS converts a filesystem error into an Error for the given path,
// propagating the underlying error kind verbatim. Errors that already carry
// a code pass through unchanged.
func FromFS(err error, path string) Error {
	if err == nil {
		return nil
	}
	var e Error
	if stderrors.As(err, &e) {
		return e
	}
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return Wrap(err, CodeNotFound, path)
	case stderrors.Is(err, fs.ErrPermission):
		return Wrap(err, CodeAccessDenied, path)
	default:
		return Wrap(err, CodeOther, path)
	}
}
