package keyvault

import (
	"errors"
	"fmt"
)

var (
	// High-level client errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMalformedInput       = errors.New("malformed input")

	// Polling errors
	ErrPollTimeout = errors.New("polling exceeded maximum wait")
)

// Service error codes the library discriminates on. Any other code is
// passed through verbatim inside a ServiceError.
const (
	errCodeNotFound       = "NotFound"
	errCodeSecretNotFound = "SecretNotFound"
	errCodeKeyNotFound    = "KeyNotFound"
	errCodeCertNotFound   = "CertificateNotFound"
	errCodeInvalidBackup  = "InvalidBackup"
)

// ServiceError is returned for every non-2xx response from the vault.
// Code and Message carry the service's error body verbatim.
type ServiceError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the service-assigned error code (e.g. "SecretNotFound",
	// "Forbidden", "InvalidBackup"). Empty if the service returned no
	// structured error body.
	Code string

	// Message is the service's human-readable error description.
	Message string

	// RequestID is the x-ms-client-request-id the failed request
	// carried, useful when correlating with service-side diagnostics.
	RequestID string
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("keyvault: service returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("keyvault: %s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a ServiceError for an object
// that does not exist in the vault.
func IsNotFound(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	if se.StatusCode == 404 {
		return true
	}
	switch se.Code {
	case errCodeNotFound, errCodeSecretNotFound, errCodeKeyNotFound, errCodeCertNotFound:
		return true
	}
	return false
}

// IsInvalidBackup returns true if the error is a ServiceError raised by
// restoring a backup blob into a vault incompatible with the blob's
// origin vault.
func IsInvalidBackup(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == errCodeInvalidBackup
}

// IsAuthError returns true if the error represents an authentication or
// authorization problem, either client-side (token provider failure) or
// reported by the service.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthenticationFailed) {
		return true
	}
	var se *ServiceError
	return errors.As(err, &se) && (se.StatusCode == 401 || se.StatusCode == 403)
}

// IsConfigurationError returns true if the error represents a
// configuration problem detected before any request was sent.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsValidationError returns true if the error represents client-side
// input validation failing fast, with no request sent.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
