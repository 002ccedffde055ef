package packfile

import "fmt"

// Error specifies errors returned while decoding pack files.
type Error struct {
	reason, details string
}

// NewError returns a new error.
func NewError(reason string) *Error {
	return &Error{reason: reason}
}

// Error returns a text representation of the error.
func (e *Error) Error() string {
	if e.details == "" {
		return e.reason
	}

	return fmt.Sprintf("%s: %s", e.reason, e.details)
}

// AddDetails adds details to an error, with additional text.
func (e *Error) AddDetails(format string, args ...interface{}) *Error {
	return &Error{
		reason:  e.reason,
		details: fmt.Sprintf(format, args...),
	}
}

// Is reports whether target is the same kind of packfile error,
// regardless of its details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.reason == e.reason
}
