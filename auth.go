package keyvault

import "context"

// TokenProvider supplies the bearer token attached to every request.
//
// The library never acquires tokens itself; implementations wrap an
// external identity mechanism. Token is called once per request, so
// implementations are expected to cache and refresh internally.
//
// Implementations:
//   - StaticTokenProvider: a fixed token string, for tests and
//     short-lived tools
//   - providers/azidentity: adapts any azcore.TokenCredential
type TokenProvider interface {
	// Token returns a bearer token valid for the vault resource, or an
	// error if one cannot be obtained.
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider is a TokenProvider returning a fixed token. It
// performs no refresh; once the token expires requests fail with an
// authentication ServiceError.
type StaticTokenProvider string

// Token implements TokenProvider.
func (s StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrAuthenticationFailed
	}
	return string(s), nil
}
