// Package domainerrors defines the error codes shared by every component.
// Services attach a code at the point of failure; transports translate the
// code to a status without inspecting messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure independent of its message.
type Code string

const (
	// Authorization and lookup failures.
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeNotOwner     Code = "not_owner"

	// Marketplace guard failures.
	CodeNotListed         Code = "not_listed"
	CodeSelfPurchase      Code = "self_purchase"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeRoleRestricted    Code = "role_restricted"

	// Warranty state machine failures.
	CodeAlreadyIssued     Code = "already_issued"
	CodeWarrantyExpired   Code = "warranty_expired"
	CodeClaimLimitReached Code = "claim_limit_reached"
	CodeInvalidState      Code = "invalid_state"

	// Ambient failures.
	CodeBadRequest Code = "bad_request"
	CodeConflict   Code = "conflict"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal"
)

// Error carries a code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error, preserving the cause
// for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or any error in its chain) carries code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// produced outside the domain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport layer responds
// with. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized, CodeNotOwner, CodeRoleRestricted:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeNotListed, CodeSelfPurchase, CodeAlreadyIssued,
		CodeWarrantyExpired, CodeClaimLimitReached, CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
