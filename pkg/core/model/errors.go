package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors that abort a solve
type ErrorKind string

const (
	// KindData means the input is malformed or references unknown entities
	KindData ErrorKind = "data_error"

	// KindInvariant means the engine reached an inconsistent state (a bug, not bad data)
	KindInvariant ErrorKind = "invariant_violation"
)

// SolveError is the structured failure returned when a solve is aborted
type SolveError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *SolveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SolveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewDataError creates a data_error for the given operation
func NewDataError(op, format string, args ...any) *SolveError {
	return &SolveError{Kind: KindData, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewInvariantViolation creates an invariant_violation for the given operation
func NewInvariantViolation(op, format string, args ...any) *SolveError {
	return &SolveError{Kind: KindInvariant, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first SolveError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var se *SolveError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsDataError reports whether err carries a data_error
func IsDataError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindData
}

// IsInvariantViolation reports whether err carries an invariant_violation
func IsInvariantViolation(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindInvariant
}
