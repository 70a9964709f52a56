package keyvault

import "time"

// Environment variable names
const (
	// EnvVaultURL is the environment variable name for the vault base URL.
	// Example: "https://myvault.vault.azure.net"
	EnvVaultURL = "KEYVAULT_URL"

	// EnvAPIVersion is the environment variable name for the service
	// api-version query parameter. Optional; DefaultAPIVersion applies.
	EnvAPIVersion = "KEYVAULT_API_VERSION"

	// EnvPollInterval is the environment variable name for the interval
	// between certificate issuance poll attempts, as a Go duration
	// string (e.g. "5s"). Optional; DefaultPollInterval applies.
	EnvPollInterval = "KEYVAULT_POLL_INTERVAL"
)

// Default values
const (
	// DefaultAPIVersion is the api-version sent with every request when
	// the configuration does not override it.
	DefaultAPIVersion = "7.4"

	// DefaultPollInterval is the fixed sleep between certificate
	// issuance poll attempts.
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxResults is the page size requested from list endpoints.
	DefaultMaxResults = 25
)

// Request header names.
const (
	headerAuthorization   = "Authorization"
	headerClientRequestID = "x-ms-client-request-id"
)
