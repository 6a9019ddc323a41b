package errs

import "fmt"

// fileError is the concrete Error implementation.
type fileError struct {
	code    Code
	class   Class
	message string
	cause   error
}

func (e *fileError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *fileError) Code() Code      { return e.code }
func (e *fileError) Class() Class    { return e.class }
func (e *fileError) Message() string { return e.message }
func (e *fileError) Unwrap() error   { return e.cause }
