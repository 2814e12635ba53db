// Package apperror defines the tagged error type carried from the service layer to
// the HTTP boundary. Every failure that reaches a client is one of four kinds.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	MalformedInput
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case MalformedInput:
		return "malformed_input"
	default:
		return "internal"
	}
}

// Error is a failure tagged with its Kind. Fields is set for field-level
// binding failures (json field name -> message).
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidation(msg string) *Error {
	return &Error{Kind: Validation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return NewValidation(fmt.Sprintf(format, args...))
}

// NewFieldValidation builds a validation error from per-field messages.
func NewFieldValidation(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

func NewNotFound(msg string) *Error {
	return &Error{Kind: NotFound, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return NewNotFound(fmt.Sprintf(format, args...))
}

func NewMalformed(msg string, err error) *Error {
	return &Error{Kind: MalformedInput, Message: msg, Err: err}
}

// Wrap tags err as Internal unless it already carries a kind.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: Internal, Message: msg + ": " + err.Error(), Err: err}
}

// As extracts the tagged error from err. Untagged errors are reported as Internal
// with the original message.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: Internal, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, Internal for untagged errors.
func KindOf(err error) Kind {
	if ae := As(err); ae != nil {
		return ae.Kind
	}
	return Internal
}

func IsNotFound(err error) bool   { return err != nil && KindOf(err) == NotFound }
func IsValidation(err error) bool { return err != nil && KindOf(err) == Validation }
