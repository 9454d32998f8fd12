package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so handlers can map them to
// transport status codes without string matching.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindNotFound             ErrorKind = "not_found"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindAlreadyExists        ErrorKind = "already_exists"
	KindAttemptLimitExceeded ErrorKind = "attempt_limit_exceeded"
	KindInvalidAnswer        ErrorKind = "invalid_answer"
	KindInvalidCredential    ErrorKind = "invalid_credential"
	KindStoreUnavailable     ErrorKind = "store_unavailable"
)

// Error is the service-layer error type. Err carries the underlying
// cause for logging; Message is safe to return to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewNotFoundError(resource string, id uint) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", resource, id)}
}

func NewPermissionError(msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: msg}
}

func NewAlreadyExistsError(msg string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: msg}
}

func NewAttemptLimitError(max int) *Error {
	return &Error{Kind: KindAttemptLimitExceeded, Message: fmt.Sprintf("attempt limit of %d reached", max)}
}

func NewInvalidAnswerError(msg string) *Error {
	return &Error{Kind: KindInvalidAnswer, Message: msg}
}

func NewInvalidCredentialError() *Error {
	return &Error{Kind: KindInvalidCredential, Message: "invalid credentials"}
}

func NewStoreError(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: op + " failed", Err: err}
}

// KindOf extracts the kind from a service error chain, or "" when the
// error did not originate in the service layer.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
