package keyvault

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client during NewClient.
type Option func(c *Client) error

// WithHTTPClient replaces the default pooled HTTP client. Use this to
// inject timeouts, proxies, or a retrying client such as
// hashicorp/go-retryablehttp's StandardClient; the library itself
// never retries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("%w: HTTP client cannot be nil", ErrInvalidConfiguration)
		}
		c.httpClient = hc
		return nil
	}
}

// WithAPIVersion overrides the api-version query parameter for this
// client only.
func WithAPIVersion(version string) Option {
	return func(c *Client) error {
		if version == "" {
			return fmt.Errorf("%w: api version cannot be empty", ErrInvalidConfiguration)
		}
		c.apiVersion = version
		return nil
	}
}

// WithLogger installs a structured logger. Requests are logged at
// debug level with method, URL, status, and duration.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfiguration)
		}
		c.logger = logger
		return nil
	}
}

// WithConfirmFunc installs a confirmation callback consulted before
// every delete. Declining aborts the delete with no request sent and a
// nil error, so interactive front-ends can prompt without the library
// carrying any interactive I/O itself.
func WithConfirmFunc(confirm ConfirmFunc) Option {
	return func(c *Client) error {
		c.confirm = confirm
		return nil
	}
}

// WithPollInterval overrides the fixed sleep between certificate
// issuance poll attempts.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfiguration)
		}
		c.pollInterval = interval
		return nil
	}
}

// WithMaxPollWait bounds the total time a wait-for-completion
// certificate create or import will poll before returning
// ErrPollTimeout. Zero restores the unbounded default.
func WithMaxPollWait(max time.Duration) Option {
	return func(c *Client) error {
		if max < 0 {
			return fmt.Errorf("%w: max poll wait cannot be negative", ErrInvalidConfiguration)
		}
		c.maxPollWait = max
		return nil
	}
}
