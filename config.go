package keyvault

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hengadev/errsx"
)

// Config holds the configuration for creating a Client.
//
// This struct contains only data, no behavior. Configuration can be
// loaded from any source (environment variables, YAML files, code) and
// passed explicitly to NewClient.
//
// Required fields:
//   - VaultURL: base URL of the vault (e.g. "https://myvault.vault.azure.net")
//
// Optional fields (defaults are applied if zero):
//   - APIVersion: service api-version query parameter (default: DefaultAPIVersion)
//   - PollInterval: sleep between certificate issuance poll attempts
//     (default: DefaultPollInterval)
//   - MaxPollWait: ceiling on the total time spent polling for
//     certificate issuance; zero means unbounded
type Config struct {
	// VaultURL is the base URL of the vault. Required. Must be an
	// absolute https URL with no path, query, or fragment.
	VaultURL string

	// APIVersion is the api-version query parameter attached to every
	// request. Optional.
	APIVersion string

	// PollInterval is the fixed interval between certificate issuance
	// poll attempts. Optional.
	PollInterval time.Duration

	// MaxPollWait bounds the total time a wait-for-completion
	// certificate create or import will poll. Zero means no bound;
	// externally-validated issuance can take arbitrarily long.
	MaxPollWait time.Duration
}

// Validate checks the configuration and applies defaults in place.
// All problems are reported at once; the returned error wraps
// ErrInvalidConfiguration.
func (c *Config) Validate() error {
	var errs errsx.Map

	if strings.TrimSpace(c.VaultURL) == "" {
		errs.Set("vault URL", errors.New("vault URL is required"))
	} else if err := validateVaultURL(c.VaultURL); err != nil {
		errs.Set("vault URL", err)
	}

	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}

	if c.PollInterval < 0 {
		errs.Set("poll interval", errors.New("poll interval cannot be negative"))
	} else if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.MaxPollWait < 0 {
		errs.Set("max poll wait", errors.New("max poll wait cannot be negative"))
	}

	if !errs.IsEmpty() {
		// errsx.Map flattens its entries into one message; the sentinel
		// must be attached here to stay reachable via errors.Is.
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
	}
	return nil
}

func validateVaultURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("vault URL is not a valid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("vault URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("vault URL has no host")
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("vault URL must not carry a path, got %q", u.Path)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return errors.New("vault URL must not carry a query or fragment")
	}
	return nil
}
