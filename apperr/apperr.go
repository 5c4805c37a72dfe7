// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the typed errors returned by every ledger operation.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInternal Code = "INTERNAL"

	// Input validation
	CodeInvalidInput Code = "INVALID_INPUT"

	// Storage
	CodeNotFound       Code = "NOT_FOUND"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
	CodeTransientStore Code = "TRANSIENT_STORE_ERROR"

	// The operation ran past its deadline and would do so again
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"

	// Lifecycle
	CodeIntegrityLocked    Code = "INTEGRITY_LOCKED"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeTallyingNotAllowed Code = "TALLYING_NOT_ALLOWED"

	// Eligibility
	CodeNotActive     Code = "NOT_ACTIVE"
	CodeOutOfWindow   Code = "OUT_OF_WINDOW"
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeAlreadyVoted  Code = "ALREADY_VOTED"

	// Ballot content, tally-time only
	CodeInvalidKey    Code = "INVALID_KEY"
	CodeInvalidBallot Code = "INVALID_BALLOT"

	// Identity boundary
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
)

// HTTPStatus maps the code to the status written by the HTTP layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput, CodeInvalidKey, CodeInvalidBallot:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeIntegrityLocked, CodeNotAuthorized, CodePermissionDenied:
		return http.StatusForbidden
	case CodeAlreadyExists, CodeInvalidTransition, CodeTallyingNotAllowed,
		CodeNotActive, CodeOutOfWindow, CodeAlreadyVoted:
		return http.StatusConflict
	case CodeTransientStore:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case CodeAuthenticationFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the failed operation was rolled back and may be resubmitted.
func (c Code) Retryable() bool {
	return c == CodeTransientStore
}

// Error is the domain error type.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // User-facing, actionable message
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message for err. Non-domain errors get a
// generic message so internal details never reach the caller.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
