// Package apperr defines the error taxonomy business logic raises and the
// HTTP layer translates. Handlers and stores return *Error values; anything
// else reaching the translator is reported as internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindForbidden
	KindNotFound
	KindConflict
	KindUnauthorized
	KindInternal
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

// WithDetail attaches a field-level detail and returns the same error so
// calls chain at the raise site.
func (e *Error) WithDetail(field, msg string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[field] = msg
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, "validation_failed", fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return New(KindForbidden, "forbidden", fmt.Sprintf(format, args...))
}

// Blocked is the forbidden variant raised by block-relationship checks; it
// keeps its own code so clients can distinguish it from permission failures.
func Blocked(message string) *Error {
	return New(KindForbidden, "blocked", message)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(KindNotFound, "not_found", fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(KindConflict, "conflict", fmt.Sprintf(format, args...))
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, "unauthorized", message)
}

func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, "internal", fmt.Sprintf(format, args...))
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
