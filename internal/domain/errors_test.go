package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainError_Error tests the formatted message with and without a cause
func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		contains []string
	}{
		{
			name:     "without_cause",
			err:      NewDomainError(ErrorCodeInvalidPhone, "phone must be a valid mobile number"),
			contains: []string{"INVALID_PHONE", "phone must be a valid mobile number"},
		},
		{
			name:     "with_cause",
			err:      WrapError(ErrorCodeGatewayUnreachable, "gateway did not answer", errors.New("connection refused")),
			contains: []string{"GATEWAY_UNREACHABLE", "gateway did not answer", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("error message %q does not contain %q", msg, want)
				}
			}
		})
	}
}

// TestDomainError_Unwrap tests errors.Is/As traversal through DomainError
func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := WrapError(ErrorCodeGatewayUnreachable, "purchase send failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is failed to reach the wrapped cause")
	}

	wrapped := fmt.Errorf("collect: %w", err)
	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatalf("errors.As failed to recover *DomainError from %v", wrapped)
	}
	if domainErr.Code != ErrorCodeGatewayUnreachable {
		t.Errorf("recovered code = %q, want %q", domainErr.Code, ErrorCodeGatewayUnreachable)
	}
}

// TestDomainError_WithDetail tests detail accumulation and retrieval
func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorCodeMissingControl, "gateway answered without a control number").
		WithDetail("environment", "production").
		WithDetail("gateway_code", "00")

	details := GetErrorDetails(fmt.Errorf("pre-register: %w", err))
	if details == nil {
		t.Fatal("expected details map, got nil")
	}
	if details["environment"] != "production" {
		t.Errorf("details[environment] = %v, want production", details["environment"])
	}
	if details["gateway_code"] != "00" {
		t.Errorf("details[gateway_code] = %v, want 00", details["gateway_code"])
	}
}

// TestIsDomainError tests code matching through wrapping
func TestIsDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{
			name: "direct_match",
			err:  NewDomainError(ErrorCodeInvalidBankCode, "unknown bank code"),
			code: ErrorCodeInvalidBankCode,
			want: true,
		},
		{
			name: "wrapped_match",
			err:  fmt.Errorf("collect: %w", NewDomainError(ErrorCodeInvalidAmount, "amount must be positive")),
			code: ErrorCodeInvalidAmount,
			want: true,
		},
		{
			name: "code_mismatch",
			err:  NewDomainError(ErrorCodeInvalidPhone, "bad prefix"),
			code: ErrorCodeInvalidIdentifier,
			want: false,
		},
		{
			name: "plain_error",
			err:  errors.New("not a domain error"),
			code: ErrorCodeInternalError,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDomainError(tt.err, tt.code); got != tt.want {
				t.Errorf("IsDomainError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestErrorClassifiers tests the validation/gateway/retryable groupings
func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
		gateway    bool
		retryable  bool
	}{
		{
			name:       "invalid_identifier",
			err:        NewDomainError(ErrorCodeInvalidIdentifier, "identifier digits out of range"),
			validation: true,
		},
		{
			name:       "invalid_phone",
			err:        NewDomainError(ErrorCodeInvalidPhone, "unknown mobile prefix"),
			validation: true,
		},
		{
			name:       "invalid_bank_code",
			err:        NewDomainError(ErrorCodeInvalidBankCode, "bank not in catalog"),
			validation: true,
		},
		{
			name:       "invalid_amount",
			err:        NewDomainError(ErrorCodeInvalidAmount, "amount not positive"),
			validation: true,
		},
		{
			name:    "malformed_response",
			err:     NewDomainError(ErrorCodeMalformedResponse, "response missing root element"),
			gateway: true,
		},
		{
			name:      "gateway_unreachable",
			err:       NewDomainError(ErrorCodeGatewayUnreachable, "all attempts exhausted"),
			gateway:   true,
			retryable: true,
		},
		{
			name:    "preregistration_failed",
			err:     NewDomainError(ErrorCodePreRegistrationFailed, "gateway rejected pre-registration"),
			gateway: true,
		},
		{
			name:    "missing_control",
			err:     NewDomainError(ErrorCodeMissingControl, "no control in approval"),
			gateway: true,
		},
		{
			name: "ledger_conflict",
			err:  NewDomainError(ErrorCodeLedgerConflict, "invoice already recorded"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.validation)
			}
			if got := IsGatewayError(tt.err); got != tt.gateway {
				t.Errorf("IsGatewayError() = %v, want %v", got, tt.gateway)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

// TestGetErrorCode tests extraction from wrapped and non-domain errors
func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Errorf("GetErrorCode(plain error) = %q, want empty", code)
	}

	err := fmt.Errorf("outer: %w", NewDomainError(ErrorCodeInternalDatabaseError, "insert failed"))
	if code := GetErrorCode(err); code != ErrorCodeInternalDatabaseError {
		t.Errorf("GetErrorCode() = %q, want %q", code, ErrorCodeInternalDatabaseError)
	}
}
