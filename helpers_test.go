package keyvault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TokenProviderMock is a testify mock of TokenProvider.
type TokenProviderMock struct {
	mock.Mock
}

func (m *TokenProviderMock) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// newTestClient spins up an httptest server around handler and returns
// a Client pointed at it. Poll interval is shortened so certificate
// tests run in milliseconds.
func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	client, err := NewClient(
		Config{VaultURL: srv.URL},
		StaticTokenProvider("test-token"),
		opts...,
	)
	require.NoError(t, err)
	return client, srv
}

// newFakeVaultClient wires a FakeVault through newTestClient.
func newFakeVaultClient(t *testing.T, opts ...Option) (*Client, *FakeVault) {
	t.Helper()

	fake := NewFakeVault()
	client, srv := newTestClient(t, fake, opts...)
	fake.SetBaseURL(srv.URL)
	return client, fake
}
