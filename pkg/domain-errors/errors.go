// Package domainerrors provides coded domain errors.
//
// Services return these so transport layers can map causes to HTTP statuses
// and API clients can branch on a stable machine-readable code. Stores return
// sentinel errors (pkg/platform/sentinel); services translate them here.
// Conventionally imported as dErrors.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the cause of a domain error. The string value is the wire
// representation returned in error envelopes, so treat it as a public API.
type Code string

const (
	// Generic codes shared by all modules.
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Custody taxonomy. Each rejection of a register/mint/transfer/authenticate
	// call maps to exactly one of these, and callers rely on the distinction
	// (e.g. unit_not_found vs not_owner is an auditability boundary).
	CodeAlreadyRegistered      Code = "already_registered"
	CodeNotRegistered          Code = "not_registered"
	CodeUnitNotFound           Code = "unit_not_found"
	CodeNotOwner               Code = "not_owner"
	CodeInvalidRecipient       Code = "invalid_recipient"
	CodeRecipientNotRegistered Code = "recipient_not_registered"
)

// Error is a domain error with a stable code and a human-readable message.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return New(code, message)
	}
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

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in domain logic.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err, or empty for non-domain errors.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}
