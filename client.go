package keyvault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

// ConfirmFunc is consulted before destructive operations when installed
// via WithConfirmFunc. objectType is the collection ("secrets", "keys",
// "certificates", "storage"); name is the object being deleted.
// Returning false aborts the operation with no request sent.
type ConfirmFunc func(objectType, name string) bool

// Client is a handle on one vault endpoint. It is safe for concurrent
// use; every method blocks until its HTTP exchange completes.
//
// Construct with NewClient and access collections through Secrets,
// Keys, Certificates, and StorageAccounts.
type Client struct {
	vaultURL   *url.URL
	apiVersion string
	httpClient *http.Client
	provider   TokenProvider
	logger     *slog.Logger
	confirm    ConfirmFunc

	pollInterval time.Duration
	maxPollWait  time.Duration
}

// NewClient creates a Client for the vault described by cfg,
// authenticating every request through provider.
//
// cfg is validated (with defaults applied) before use. Options are
// applied in order after validation; an option returning an error
// aborts construction.
func NewClient(cfg Config, provider TokenProvider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: token provider cannot be nil", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.VaultURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse vault URL: %w", ErrInvalidConfiguration, err)
	}
	base.Path = ""

	c := &Client{
		vaultURL:     base,
		apiVersion:   cfg.APIVersion,
		httpClient:   cleanhttp.DefaultPooledClient(),
		provider:     provider,
		logger:       slog.New(discardHandler{}),
		pollInterval: cfg.PollInterval,
		maxPollWait:  cfg.MaxPollWait,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// VaultURL returns the vault base URL this client targets.
func (c *Client) VaultURL() string {
	return c.vaultURL.String()
}

// Secrets returns the collection client for secret operations.
func (c *Client) Secrets() *SecretsClient {
	return &SecretsClient{c: c}
}

// Keys returns the collection client for key operations.
func (c *Client) Keys() *KeysClient {
	return &KeysClient{c: c}
}

// Certificates returns the collection client for certificate operations.
func (c *Client) Certificates() *CertificatesClient {
	return &CertificatesClient{c: c}
}

// StorageAccounts returns the collection client for managed
// storage-account operations.
func (c *Client) StorageAccounts() *StorageAccountsClient {
	return &StorageAccountsClient{c: c}
}

// objectURL builds a vault-relative URL from path segments and query
// values. Segments are escaped individually, so reserved characters in
// names and versions never change the path shape. The api-version
// parameter is always attached.
func (c *Client) objectURL(segments []string, query url.Values) string {
	u := c.vaultURL.JoinPath(segments...)

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("api-version", c.apiVersion)
	u.RawQuery = q.Encode()
	return u.String()
}

// do performs one request against a vault-relative path. body is
// JSON-encoded when non-nil; a 2xx JSON response is decoded into out
// when out is non-nil. A non-2xx response is returned as *ServiceError.
// No retries happen at this layer.
func (c *Client) do(ctx context.Context, method string, segments []string, query url.Values, body, out any) error {
	return c.doURL(ctx, method, c.objectURL(segments, query), body, out)
}

// doURL is the raw dispatcher used by do and by pagination, which must
// follow absolute nextLink URLs as served.
func (c *Client) doURL(ctx context.Context, method, rawURL string, body, out any) error {
	token, err := c.provider.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request body: %w", ErrMalformedInput, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerAuthorization, "Bearer "+token)
	req.Header.Set(headerClientRequestID, requestID)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "keyvault request",
		slog.String("method", method),
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
	)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeServiceError(resp.StatusCode, requestID, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// decodeServiceError turns a non-2xx body into a *ServiceError. The
// service wraps errors as {"error": {"code": ..., "message": ...}};
// anything else is carried as the raw message.
func decodeServiceError(status int, requestID string, payload []byte) error {
	se := &ServiceError{StatusCode: status, RequestID: requestID}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Code != "" {
		se.Code = envelope.Error.Code
		se.Message = envelope.Error.Message
	} else {
		se.Message = string(payload)
	}
	return se
}

// confirmDelete applies the optional confirmation callback. It returns
// true when the deletion should proceed.
func (c *Client) confirmDelete(objectType, name string) bool {
	if c.confirm == nil {
		return true
	}
	return c.confirm(objectType, name)
}

// discardHandler drops all records. The default logger until
// WithLogger installs a real one.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
