// Package errors provides the closed error-kind set used across LoopForge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the fixed error kinds the orchestrator and API edge know
// how to map. It is a kind, not a type name.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindBadInput          Kind = "bad_input"
	KindConflict          Kind = "conflict"
	KindDependencyMissing Kind = "dependency_missing"
	KindAudioDecodeError  Kind = "audio_decode_error"
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal"
)

var httpStatus = map[Kind]int{
	KindNotFound:          http.StatusNotFound,
	KindBadInput:          http.StatusBadRequest,
	KindConflict:          http.StatusBadRequest,
	KindDependencyMissing: http.StatusServiceUnavailable,
	KindAudioDecodeError:  http.StatusUnprocessableEntity,
	KindCancelled:         http.StatusOK,
	KindTimeout:           http.StatusGatewayTimeout,
	KindInternal:          http.StatusInternalServerError,
}

// ServiceError is the structured error carried through job rows, the event
// bus, and (at the edge) HTTP responses.
type ServiceError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the external HTTP edge should use.
func (e *ServiceError) HTTPStatus() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails attaches diagnostic key/value pairs, e.g. the field that
// failed validation.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind == kind
	}
	return false
}

// AsServiceError extracts the *ServiceError carried by err, if any.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

func NotFound(resource, id string) *ServiceError {
	return New(KindNotFound, resource+" not found").WithDetails("id", id)
}

func BadInput(field, reason string) *ServiceError {
	return New(KindBadInput, reason).WithDetails("field", field)
}

func Conflict(message string) *ServiceError {
	return New(KindConflict, message)
}

func DependencyMissing(dependency string, err error) *ServiceError {
	return Wrap(KindDependencyMissing, dependency+" unavailable", err).WithDetails("dependency", dependency)
}

func AudioDecodeError(path string, err error) *ServiceError {
	return Wrap(KindAudioDecodeError, "unreadable or unsupported audio source", err).WithDetails("path", path)
}

func Cancelled() *ServiceError {
	return New(KindCancelled, "cancelled")
}

func Timeout(operation string) *ServiceError {
	return New(KindTimeout, operation+" exceeded its time budget").WithDetails("operation", operation)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(KindInternal, message, err)
}
