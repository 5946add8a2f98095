package types

import "fmt"

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Msg string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an unknown requestId or a requestId/email mismatch.
// Both cases produce the same message so existence is not leaked.
type NotFoundError struct {
	Msg string
}

// NewNotFoundError formats a NotFoundError.
func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string { return e.Msg }

// ExpiredError reports insufficient remaining record lifetime for a presigned
// operation.
type ExpiredError struct {
	Msg string
}

func (e *ExpiredError) Error() string { return e.Msg }

// TransportError reports a failed call to an external collaborator (metadata
// store, object store, or notification channel).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ProcessingError reports a failure of the resampling routine on the supplied
// data. It is an expected task outcome, not an operational fault.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return e.Err.Error() }

func (e *ProcessingError) Unwrap() error { return e.Err }
