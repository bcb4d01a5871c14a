// Package pipelineerr provides the categorized error taxonomy shared by the
// validation engine, the storage and object-store ports, and the broker
// delivery protocol. Handlers and the worker loop switch on Kind rather than
// matching strings.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a pipeline error. The broker and HTTP layers dispatch on
// Kind to decide retry/ack behavior and status codes.
type Kind string

const (
	KindSchemaNotFound         Kind = "schema_not_found"
	KindParseError             Kind = "parse_error"
	KindStorageConnectionError Kind = "storage_connection_error"
	KindStorageNotFound        Kind = "storage_not_found"
	KindBucketConnectionError  Kind = "bucket_connection_error"
	KindBucketOperationError   Kind = "bucket_operation_error"
	KindObjectNotFound         Kind = "object_not_found"
	KindBrokerConnectionRefused Kind = "broker_connection_refused"
	KindBrokerSendError        Kind = "broker_send_error"
	KindUnsupportedFormat      Kind = "unsupported_format"
	KindInternal               Kind = "internal_error"
)

// Error is a categorized pipeline failure. It is always returned as *Error
// so callers can use errors.As to recover the Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap categorizes an underlying error under kind, preserving it for
// errors.Unwrap / errors.Is chains.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

// Is reports whether err is a pipeline Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind of err, returning (KindInternal, false) if err is
// not a pipeline Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal, false
	}
	return e.Kind, true
}
