// Package apperror defines the closed set of failure kinds returned by the
// service layer. Handlers map a Kind to an HTTP status through the response
// package, so callers never need to compare error strings.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure
type Kind string

const (
	KindDuplicateEntry   Kind = "DUPLICATE_ENTRY"
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidArgument  Kind = "INVALID_ARGUMENT"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindInternal         Kind = "INTERNAL"
)

// Error is a classified service error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrDuplicateEntry   = &Error{Kind: KindDuplicateEntry}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrInternal         = &Error{Kind: KindInternal}
)

func DuplicateEntry(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDuplicateEntry, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func PermissionDenied(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure (usually a database error) with context
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the human readable message of a classified error
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
