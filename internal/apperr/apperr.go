// Package apperr defines the error taxonomy shared by all registry services.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single invalid field on a write request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports one or more invalid fields. It maps to HTTP 400.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// AuthorizationError reports a denied operation. It maps to HTTP 403 and must
// stay distinguishable from NotFoundError at every call site.
type AuthorizationError struct {
	Subject   string
	Operation string
}

func (e *AuthorizationError) Error() string {
	if e == nil {
		return "forbidden"
	}
	if e.Operation == "" {
		return "forbidden"
	}
	return fmt.Sprintf("forbidden: %s", e.Operation)
}

// Forbidden builds an AuthorizationError for an operation on a subject.
func Forbidden(subject, operation string) *AuthorizationError {
	return &AuthorizationError{Subject: subject, Operation: operation}
}

// NotFoundError reports a missing entity. It maps to HTTP 404.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "not found"
	}
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a uniqueness or reference-integrity violation. It maps
// to HTTP 409 and always leaves the existing state unmodified.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "conflict"
	}
	if e.Entity == "" {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict on %s: %s", e.Entity, e.Reason)
}

// Conflict builds a ConflictError.
func Conflict(entity, reason string) *ConflictError {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ConnectorError reports a failed call to a remote target system: unreachable
// host, malformed metadata, or a deadline. Connector errors are always
// retryable from the caller's point of view and never corrupt persisted state.
type ConnectorError struct {
	SystemID string
	Op       string
	Timeout  bool
	Err      error
}

func (e *ConnectorError) Error() string {
	if e == nil {
		return "connector error"
	}
	msg := "connector " + e.Op + " failed"
	if e.Timeout {
		msg = "connector " + e.Op + " timed out"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Connector wraps a remote-system failure.
func Connector(systemID, op string, err error) *ConnectorError {
	return &ConnectorError{SystemID: systemID, Op: op, Err: err}
}

// ConnectorTimeout wraps a remote-system deadline.
func ConnectorTimeout(systemID, op string, err error) *ConnectorError {
	return &ConnectorError{SystemID: systemID, Op: op, Timeout: true, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsConnector(err error) bool {
	var ce *ConnectorError
	return errors.As(err, &ce)
}
