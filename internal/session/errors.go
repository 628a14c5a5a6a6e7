package session

import "fmt"

// ErrorKind classifies orchestrator failures for HTTP status mapping.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindProjectState ErrorKind = "project_state"
	KindRepository   ErrorKind = "repository"
	KindGeneration   ErrorKind = "generation"
	KindSync         ErrorKind = "sync"
)

// Error wraps a failure with its taxonomy kind. The message is what ends up
// in the single-field error response body.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func wrap(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
