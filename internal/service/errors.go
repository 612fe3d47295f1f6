package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain failure returned by a service wraps exactly one.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a domain failure with a caller-facing message
type Error struct {
	Kind    error
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Forbidden reasons that callers may want to tell apart
var (
	ErrEditWindowClosed    = &Error{Kind: ErrForbidden, Message: "comments can only be edited within the edit window after posting"}
	ErrRestoreWindowClosed = &Error{Kind: ErrForbidden, Message: "comments can only be restored within the restore window after deletion"}
	ErrInvalidCredentials  = &Error{Kind: ErrUnauthorized, Message: "invalid credentials"}
)

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notAuthor(action string) *Error {
	return newError(ErrForbidden, "you can only %s your own comments", action)
}
