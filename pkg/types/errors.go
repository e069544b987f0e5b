package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindConstraintViolation ErrorKind = "constraint_violation"
	KindConflict            ErrorKind = "conflict"
	KindNoMatch             ErrorKind = "no_match"
	KindDependencyFailure   ErrorKind = "dependency_failure"
	KindNotificationFailure ErrorKind = "notification_failure"
)

// Error is the structured failure returned by the matching engine. Errors
// compare equal under errors.Is to the bare kind sentinels below, so callers
// can branch on ErrConflict without caring about the message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrConstraintViolation = &Error{Kind: KindConstraintViolation}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrNoMatch             = &Error{Kind: KindNoMatch}
	ErrDependencyFailure   = &Error{Kind: KindDependencyFailure}
	ErrNotificationFailure = &Error{Kind: KindNotificationFailure}
)

var (
	ErrNeedNotFound       = NotFound("need not found")
	ErrOfferNotFound      = NotFound("offer not found")
	ErrAssignmentNotFound = NotFound("assignment not found")
	ErrUserNotFound       = NotFound("user not found")
)

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func ConstraintViolation(format string, args ...any) *Error {
	return &Error{Kind: KindConstraintViolation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NoMatch(msg string) *Error {
	return &Error{Kind: KindNoMatch, Message: msg}
}

// DependencyFailure wraps a store or spatial engine error. Errors that are
// already typed pass through untouched so a NotFound from the store keeps
// its kind.
func DependencyFailure(err error, msg string) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{Kind: KindDependencyFailure, Message: msg, Err: err}
}

func NotificationFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindNotificationFailure, Message: msg, Err: err}
}

// KindOf reports the kind of err, defaulting to dependency failure for
// untyped errors.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindDependencyFailure
}
