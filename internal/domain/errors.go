package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a ledger failure.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotAuthenticated ErrorKind = "not_authenticated"
	KindNotAuthorized    ErrorKind = "not_authorized"
	KindNotFound         ErrorKind = "not_found"
	KindNoCapacity       ErrorKind = "no_capacity"
	KindConflict         ErrorKind = "conflict"
	KindPersistence      ErrorKind = "persistence"
)

// Error carries a kind plus a human readable message. Two errors match
// under errors.Is when their kinds are equal, so callers compare against
// the sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	ErrNotAuthorized    = &Error{Kind: KindNotAuthorized}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrNoCapacity       = &Error{Kind: KindNoCapacity}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrPersistence      = &Error{Kind: KindPersistence}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotAuthenticated(msg string) error {
	return &Error{Kind: KindNotAuthenticated, Message: msg}
}

func NotAuthorized(msg string) error {
	return &Error{Kind: KindNotAuthorized, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NoCapacity(date string) error {
	return &Error{Kind: KindNoCapacity, Message: fmt.Sprintf("no seats available on %s", date)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. Errors that already carry a kind are
// returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

// KindOf reports the kind of err, defaulting to persistence for anything
// that did not originate in the ledger.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}
