// Package errs provides the structured error system used throughout the
// caching core. It extends Go's standard error handling with error codes
// identifying the failure kind and a classification separating per-file
// recoverable failures from fatal internal-invariant violations.
package errs

// Error extends the standard error interface with structured information
// for consistent error handling.
//
// Error provides codes for categorization, a class for recoverability
// decisions, and compatibility with standard library error handling
// (errors.Is, errors.As, errors.Unwrap).
type Error interface {
	error

	// Code returns the error code identifying the type of error.
	Code() Code

	// Class returns whether the error is scoped to a single file or
	// signals a broken internal invariant.
	Class() Class

	// Message returns the human-readable error message.
	Message() string

	// Unwrap returns the wrapped error for errors.Is and errors.As
	// compatibility. Returns nil if this error does not wrap another error.
	Unwrap() error
}
