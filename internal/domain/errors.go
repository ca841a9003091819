package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable label carried by every DomainError.
// Callers branch on codes, never on message text.
type ErrorCode string

const (
	// Input validation errors (INVALID_*)
	ErrorCodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"
	ErrorCodeInvalidPhone      ErrorCode = "INVALID_PHONE"
	ErrorCodeInvalidBankCode   ErrorCode = "INVALID_BANK_CODE"
	ErrorCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"

	// Gateway conversation errors (GATEWAY_*)
	ErrorCodeMalformedResponse     ErrorCode = "MALFORMED_RESPONSE"
	ErrorCodeGatewayUnreachable    ErrorCode = "GATEWAY_UNREACHABLE"
	ErrorCodePreRegistrationFailed ErrorCode = "PREREGISTRATION_FAILED"
	ErrorCodeMissingControl        ErrorCode = "MISSING_CONTROL"

	// Ledger errors (LEDGER_*)
	ErrorCodeLedgerConflict ErrorCode = "LEDGER_CONFLICT"
	ErrorCodeLedgerNotFound ErrorCode = "LEDGER_NOT_FOUND"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError         ErrorCode = "INTERNAL_ERROR"
	ErrorCodeInternalDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError carries an error code, a human message and optional
// key/value details alongside the wrapped cause.
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair and returns the error for chaining.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// NewDomainError builds a DomainError with no underlying cause.
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{},
	}
}

// WrapError builds a DomainError around an underlying cause.
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{},
		Err:     err,
	}
}

// IsDomainError reports whether err (or anything it wraps) is a
// DomainError carrying the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// GetErrorCode returns the code of the nearest DomainError in the chain,
// or the empty string when there is none.
func GetErrorCode(err error) ErrorCode {
	var de *DomainError
	if !errors.As(err, &de) {
		return ""
	}
	return de.Code
}

// GetErrorDetails returns the detail map of the nearest DomainError in
// the chain, or nil when there is none.
func GetErrorDetails(err error) map[string]interface{} {
	var de *DomainError
	if !errors.As(err, &de) {
		return nil
	}
	return de.Details
}

// IsValidationError reports whether err rejected caller input before any
// gateway call was made.
func IsValidationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeInvalidIdentifier, ErrorCodeInvalidPhone, ErrorCodeInvalidBankCode, ErrorCodeInvalidAmount:
		return true
	}
	return false
}

// IsGatewayError reports whether err came out of the gateway conversation
// itself rather than local validation or the ledger.
func IsGatewayError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeMalformedResponse, ErrorCodeGatewayUnreachable, ErrorCodePreRegistrationFailed, ErrorCodeMissingControl:
		return true
	}
	return false
}

// IsRetryable reports whether the failed operation may be safely attempted
// again. Only transport-level unreachability qualifies; a malformed or
// negative gateway answer means the request arrived and must not be resent
// blindly.
func IsRetryable(err error) bool {
	return IsDomainError(err, ErrorCodeGatewayUnreachable)
}
