package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected engine outcomes so the transport layer
// can pick a status code and user-facing copy without string matching.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindConflict          ErrorKind = "conflict"
	KindLocked            ErrorKind = "locked"
	KindValidation        ErrorKind = "validation"
	KindInternal          ErrorKind = "internal"
)

// Error is the engine's expected-failure type. Infrastructure failures
// are returned as plain errors and mapped to KindInternal at the edge.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func notFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func illegalTransitionf(format string, args ...interface{}) error {
	return &Error{Kind: KindIllegalTransition, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func lockedf(format string, args ...interface{}) error {
	return &Error{Kind: KindLocked, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an engine error. Unknown errors are
// infrastructure failures and report KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
