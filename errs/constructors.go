package errs

import "fmt"

// New creates a new Error with the given code and message.
// The class is determined by the code using default mappings.
//
// Example:
//
//	err := errs.New(errs.CodeNotFound, "/main.qm")
func New(code Code, message string) Error {
	return &fileError{
		code:    code,
		class:   classOf(code),
		message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) Error {
	return &fileError{
		code:    code,
		class:   classOf(code),
		message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context while preserving the original
// error. The wrapped error is accessible via Unwrap() and compatible with
// errors.Is and errors.As.
//
// Returns nil if err is nil.
func Wrap(err error, code Code, message string) Error {
	if err == nil {
		return nil
	}
	return &fileError{
		code:    code,
		class:   classOf(code),
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with a formatted message while preserving the
// original error.
//
// Returns nil if err is nil.
func Wrapf(err error, code Code, format string, args ...any) Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}
