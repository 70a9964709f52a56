package keyvault

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"Invalid Configuration", ErrInvalidConfiguration, ErrInvalidConfiguration},
		{"Authentication Failed", ErrAuthenticationFailed, ErrAuthenticationFailed},
		{"Malformed Input", ErrMalformedInput, ErrMalformedInput},
		{"Poll Timeout", ErrPollTimeout, ErrPollTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.expected) {
				t.Errorf("Expected errors.Is(wrapped, %v) to be true", tt.expected)
			}
		})
	}
}

func TestServiceErrorFormatting(t *testing.T) {
	withCode := &ServiceError{StatusCode: 404, Code: "SecretNotFound", Message: "gone"}
	if got := withCode.Error(); got != `keyvault: SecretNotFound (status 404): gone` {
		t.Errorf("unexpected message: %s", got)
	}

	withoutCode := &ServiceError{StatusCode: 502, Message: "upstream"}
	if got := withoutCode.Error(); got != `keyvault: service returned status 502: upstream` {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		isNotFound      bool
		isInvalidBackup bool
		isAuth          bool
		isValidation    bool
	}{
		{
			name:       "404 without code",
			err:        fmt.Errorf("call: %w", &ServiceError{StatusCode: 404}),
			isNotFound: true,
		},
		{
			name:       "typed not found code",
			err:        &ServiceError{StatusCode: 400, Code: "KeyNotFound"},
			isNotFound: true,
		},
		{
			name:            "invalid backup",
			err:             &ServiceError{StatusCode: 400, Code: "InvalidBackup"},
			isInvalidBackup: true,
		},
		{
			name:   "forbidden",
			err:    &ServiceError{StatusCode: 403, Code: "Forbidden"},
			isAuth: true,
		},
		{
			name:   "wrapped auth sentinel",
			err:    fmt.Errorf("token: %w", ErrAuthenticationFailed),
			isAuth: true,
		},
		{
			name:         "malformed input",
			err:          fmt.Errorf("name: %w", ErrMalformedInput),
			isValidation: true,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.isNotFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.isNotFound)
			}
			if got := IsInvalidBackup(tt.err); got != tt.isInvalidBackup {
				t.Errorf("IsInvalidBackup = %v, want %v", got, tt.isInvalidBackup)
			}
			if got := IsAuthError(tt.err); got != tt.isAuth {
				t.Errorf("IsAuthError = %v, want %v", got, tt.isAuth)
			}
			if got := IsValidationError(tt.err); got != tt.isValidation {
				t.Errorf("IsValidationError = %v, want %v", got, tt.isValidation)
			}
		})
	}
}
