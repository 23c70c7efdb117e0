// Package errors provides the structured error types used by reqlog and the
// services it is embedded in. Error categories (Permanent, Temporary, NotFound,
// InvalidInput) drive HTTP status mapping, and Info converts any error into the
// error-info mapping that the request logger copies into access records.
//
// Example usage:
//
//	if err := client.Ping(ctx).Err(); err != nil {
//	    return errors.NewTemporary("redis sink unreachable", err)
//	}
//
//	if order == nil {
//	    return errors.NewNotFound("order", orderID)
//	}
package errors

import (
	"fmt"
)

// PermanentError represents an error that won't succeed even if retried.
// Examples: invalid sink configuration, writing to a closed emitter.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanent creates a new permanent error with the given message and optional cause.
func NewPermanent(msg string, cause error) error {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// TemporaryError represents an error that might succeed later.
// Examples: a sink connection dropped, a collector answering 503.
type TemporaryError struct {
	msg   string
	cause error
}

// NewTemporary creates a new temporary error with the given message and optional cause.
func NewTemporary(msg string, cause error) error {
	return &TemporaryError{msg: msg, cause: cause}
}

func (e *TemporaryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *TemporaryError) Unwrap() error {
	return e.cause
}

// NotFoundError represents an error when a requested resource doesn't exist.
type NotFoundError struct {
	resource string
	id       string
	cause    error
}

// NewNotFound creates a new not found error for the given resource and ID.
func NewNotFound(resource, id string) error {
	return &NotFoundError{resource: resource, id: id}
}

// NewNotFoundWithCause creates a new not found error with an underlying cause.
func NewNotFoundWithCause(resource, id string, cause error) error {
	return &NotFoundError{resource: resource, id: id, cause: cause}
}

func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s not found: %s (%v)", e.resource, e.id, e.cause)
	}
	return fmt.Sprintf("%s not found: %s", e.resource, e.id)
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Resource returns the type of resource that wasn't found.
func (e *NotFoundError) Resource() string {
	return e.resource
}

// ID returns the identifier of the resource that wasn't found.
func (e *NotFoundError) ID() string {
	return e.id
}

// InvalidInputError represents an error due to invalid input, either from a
// request or from configuration.
type InvalidInputError struct {
	field string
	msg   string
	cause error
}

// NewInvalidInput creates a new invalid input error for the given field and message.
func NewInvalidInput(field, msg string) error {
	return &InvalidInputError{field: field, msg: msg}
}

// NewInvalidInputWithCause creates a new invalid input error with an underlying cause.
func NewInvalidInputWithCause(field, msg string, cause error) error {
	return &InvalidInputError{field: field, msg: msg, cause: cause}
}

func (e *InvalidInputError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid input for %s: %s (%v)", e.field, e.msg, e.cause)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.field, e.msg)
}

func (e *InvalidInputError) Unwrap() error {
	return e.cause
}

// Field returns the field name that had invalid input.
func (e *InvalidInputError) Field() string {
	return e.field
}

// Message returns the validation error message.
func (e *InvalidInputError) Message() string {
	return e.msg
}

// CodedError attaches an application error code to an error. The code ends up
// in the error_code field of the access record instead of the HTTP status.
type CodedError struct {
	code  string
	cause error
}

// WithCode annotates err with an application error code. Returns nil if err is nil.
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &CodedError{code: code, cause: err}
}

func (e *CodedError) Error() string {
	return e.cause.Error()
}

func (e *CodedError) Unwrap() error {
	return e.cause
}

// Code returns the application error code.
func (e *CodedError) Code() string {
	return e.code
}

// PanicError is produced when a handler panic is recovered.
type PanicError struct {
	value any
	stack []byte
}

// NewPanic creates a PanicError for a recovered value and the stack captured at recovery.
func NewPanic(value any, stack []byte) error {
	return &PanicError{value: value, stack: stack}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.value)
}

// Value returns the value passed to panic.
func (e *PanicError) Value() any {
	return e.value
}

// Stack returns the goroutine stack captured when the panic was recovered.
func (e *PanicError) Stack() []byte {
	return e.stack
}
