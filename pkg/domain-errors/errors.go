// Package domainerrors provides code-carrying domain errors. Services attach
// a stable code so transport can map errors to HTTP statuses without string
// matching, and callers can branch on Is/HasCode instead of error text.
// Conventionally imported as dErrors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the API surface:
// handlers serialize them into error envelopes, so renaming one is a breaking
// change for clients.
type Code string

const (
	// Caller input failures, fully recoverable.
	CodeBadRequest    Code = "bad_request"
	CodeValidation    Code = "validation_failed"
	CodeInvalidFormat Code = "invalid_identifier_format"

	// Claim flow. CodeNotFoundOrClaimed is deliberately merged: it never
	// reveals whether an identifier exists at all, only that it cannot be
	// claimed. Do not split it into separate not-found / already-claimed
	// codes; the ambiguity is the anti-enumeration property.
	CodeNotFoundOrClaimed Code = "not_found_or_already_claimed"
	CodeEmailInUse        Code = "email_in_use"
	CodeExhaustedAttempts Code = "identifier_attempts_exhausted"

	// Infrastructure. CodeStorage is intentionally opaque: callers cannot
	// distinguish transient outages from structural bugs by code alone.
	// Full detail is logged server-side.
	CodeStorage     Code = "storage_error"
	CodeRateLimited Code = "rate_limit_exceeded"
	CodeTimeout     Code = "timeout"

	// Transport-level.
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal_error"
)

// Error is a domain error with a stable code. The message is safe to log but
// not necessarily safe to return to clients; transport decides what to expose.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasCode reports whether err or any wrapped error carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidFormat:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeNotFoundOrClaimed:
		return http.StatusNotFound
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeStorage, CodeExhaustedAttempts, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
