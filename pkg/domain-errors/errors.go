// Package domainerrors provides coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors so transports can map failures without string
// matching. Messages are client-facing and must stay stable.
package domainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation   Code = "validation"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeExpired      Code = "expired"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal"
)

// FieldError labels a single failing field. Order is preserved so aggregated
// messages stay deterministic.
type FieldError struct {
	Field   string
	Message string
}

// Error is the domain error type. Fields is populated only for validation
// failures that aggregate per-field problems.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error with a client-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause is
// preserved for errors.Is/As but never shown to clients.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Field returns the message recorded for a field, if any.
func (e *Error) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message, true
		}
	}
	return "", false
}

// FieldErrors accumulates per-field validation failures in check order.
// Setting a field twice replaces the message but keeps the original position.
type FieldErrors struct {
	fields []FieldError
}

// Set records a failure for a field.
func (f *FieldErrors) Set(field, message string) {
	for i, existing := range f.fields {
		if existing.Field == field {
			f.fields[i].Message = message
			return
		}
	}
	f.fields = append(f.fields, FieldError{Field: field, Message: message})
}

// Empty reports whether no failures were recorded.
func (f *FieldErrors) Empty() bool {
	return len(f.fields) == 0
}

// Err builds a single aggregated validation error, or nil if no field failed.
// The message lists every failing field on its own line.
func (f *FieldErrors) Err(prefix string) error {
	if f.Empty() {
		return nil
	}
	lines := make([]string, 0, len(f.fields))
	for _, fe := range f.fields {
		lines = append(lines, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return &Error{
		Code:    CodeValidation,
		Message: prefix + "\n" + strings.Join(lines, "\n"),
		Fields:  f.fields,
	}
}
