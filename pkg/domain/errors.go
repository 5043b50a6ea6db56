package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so transports can map it to a status code.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindForbidden         ErrorKind = "forbidden"
	KindConflict          ErrorKind = "conflict"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindValidation        ErrorKind = "validation"
)

// Error is the single error type surfaced by domain and application code.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewNotFoundError reports that the entity with the given id does not exist.
func NewNotFoundError(entity, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewForbiddenError reports a relationship failure: the caller is not the
// owner, renter or party the operation is scoped to.
func NewForbiddenError(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewConflictError reports a violated state precondition.
func NewConflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewInvalidStateError reports a transition the state machine does not allow.
func NewInvalidStateError(from, to string) error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("invalid state transition from %s to %s", from, to),
	}
}

// NewValidationError reports missing or malformed input.
func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or "" otherwise.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool         { return KindOf(err) == KindForbidden }
func IsConflict(err error) bool          { return KindOf(err) == KindConflict }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }
func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
