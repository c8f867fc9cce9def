// Package common defines the closed error taxonomy shared by all server
// components. Services return *Error values carrying one of the codes
// below; the HTTP boundary maps a code to a status exactly once. Callers
// should match with errors.Is against the exported sentinels.
package common

import (
	"errors"
	"fmt"
)

// Code identifies one branch of the error taxonomy. The set is closed:
// new failure modes must reuse an existing code or extend this enum, not
// invent ad-hoc error types.
type Code string

const (
	CodeThrottled          Code = "throttled"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeValidation         Code = "validation"
	CodeStorage            Code = "storage"
	CodeInternal           Code = "internal"
)

// Fixed user-visible messages. Throttling and credential failures must
// not vary by cause, so every call site uses the same string.
const (
	MsgThrottled          = "Too many failed attempts. Try again in 30 minutes."
	MsgInvalidCredentials = "Invalid credentials"
	MsgUnverified         = "Account not verified. Please check your email for verification instructions."
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports code equality, so errors.Is(err, ErrNotFound) matches any
// Error carrying CodeNotFound regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// E constructs a plain taxonomy error.
func E(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a technical cause to a taxonomy error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeInternal
// for technical errors that never got classified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for errors.Is matching.
var (
	ErrThrottled          = E(CodeThrottled, MsgThrottled)
	ErrInvalidCredentials = E(CodeInvalidCredentials, MsgInvalidCredentials)
	ErrUnauthorized       = E(CodeUnauthorized, "unauthorized")
	ErrNotFound           = E(CodeNotFound, "not found")
	ErrConflict           = E(CodeConflict, "already exists")
	ErrValidation         = E(CodeValidation, "validation error")
	ErrStorage            = E(CodeStorage, "storage failure")
	ErrInternal           = E(CodeInternal, "internal error")
)
