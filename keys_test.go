package keyvault

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeyServer serves a single RSA key and reverses payload bytes for
// "encryption", enough to prove the proxying and base64url transport.
type fakeKeyServer struct {
	baseURL  string
	requests []string
}

func (f *fakeKeyServer) keyBundle(name, version string) map[string]any {
	return map[string]any{
		"key": map[string]any{
			"kid":     fmt.Sprintf("%s/keys/%s/%s", f.baseURL, name, version),
			"kty":     KeyTypeRSA,
			"key_ops": []string{"encrypt", "decrypt", "sign", "verify"},
			"n":       "base64url-modulus",
			"e":       "AQAB",
		},
		"attributes": map[string]any{"enabled": true},
	}
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func (f *fakeKeyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == "POST" && len(segments) == 3 && segments[2] == "create":
		_ = json.NewEncoder(w).Encode(f.keyBundle(segments[1], "v1"))
	case r.Method == "PUT" && len(segments) == 2:
		_ = json.NewEncoder(w).Encode(f.keyBundle(segments[1], "v1"))
	case r.Method == "GET" && len(segments) >= 2:
		_ = json.NewEncoder(w).Encode(f.keyBundle(segments[1], "v1"))
	case r.Method == "POST" && len(segments) == 4 && (segments[3] == "encrypt" || segments[3] == "decrypt" ||
		segments[3] == "wrapkey" || segments[3] == "unwrapkey" || segments[3] == "sign"):
		var req struct {
			Alg   string `json:"alg"`
			Value string `json:"value"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		raw, err := base64.RawURLEncoding.DecodeString(req.Value)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "BadParameter", "message": "value is not base64url"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"kid":   fmt.Sprintf("%s/keys/%s/%s", f.baseURL, segments[1], segments[2]),
			"value": base64.RawURLEncoding.EncodeToString(reverse(raw)),
		})
	case r.Method == "POST" && len(segments) == 4 && segments[3] == "verify":
		var req struct {
			Digest string `json:"digest"`
			Value  string `json:"value"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		digest, _ := base64.RawURLEncoding.DecodeString(req.Digest)
		signature, _ := base64.RawURLEncoding.DecodeString(req.Value)
		_ = json.NewEncoder(w).Encode(map[string]bool{
			"value": string(reverse(digest)) == string(signature),
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "KeyNotFound", "message": "no such key"}})
	}
}

func newKeyClient(t *testing.T) (*Client, *fakeKeyServer) {
	t.Helper()
	fake := &fakeKeyServer{}
	client, srv := newTestClient(t, fake)
	fake.baseURL = srv.URL
	return client, fake
}

func TestKeyCreate(t *testing.T) {
	client, _ := newKeyClient(t)

	key, err := client.Keys().Create(context.Background(), "signing", KeyTypeRSA, &CreateKeyOptions{KeySize: 2048})
	require.NoError(t, err)
	assert.Equal(t, "signing", ObjectID(key.Key.KeyID).Name())
	assert.Equal(t, "v1", key.Version(), "handle binds to the created version")
	assert.Equal(t, KeyTypeRSA, key.Key.KeyType)
}

func TestKeyCreateValidation(t *testing.T) {
	client, _ := newKeyClient(t)

	_, err := client.Keys().Create(context.Background(), "", KeyTypeRSA, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = client.Keys().Create(context.Background(), "name", "", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestKeyImportRequiresKeyType(t *testing.T) {
	client, _ := newKeyClient(t)

	_, err := client.Keys().ImportKey(context.Background(), "imported", JSONWebKey{}, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	key, err := client.Keys().ImportKey(context.Background(), "imported",
		JSONWebKey{KeyType: KeyTypeRSA, N: "n", E: "AQAB"}, &ImportKeyOptions{HSM: false})
	require.NoError(t, err)
	assert.Equal(t, "imported", ObjectID(key.Key.KeyID).Name())
}

func TestKeyCryptoOperationsRoundTrip(t *testing.T) {
	client, _ := newKeyClient(t)
	ctx := context.Background()

	key, err := client.Keys().Get(ctx, "cipher", "v1")
	require.NoError(t, err)

	plaintext := []byte("attack at dawn")
	ciphertext, err := key.Encrypt(ctx, AlgRSAOAEP, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	decrypted, err := key.Decrypt(ctx, AlgRSAOAEP, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	wrapped, err := key.WrapKey(ctx, AlgRSAOAEP256, []byte("0123456789abcdef"))
	require.NoError(t, err)
	unwrapped, err := key.UnwrapKey(ctx, AlgRSAOAEP256, wrapped)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), unwrapped)
}

func TestKeySignVerify(t *testing.T) {
	client, _ := newKeyClient(t)
	ctx := context.Background()

	key, err := client.Keys().Get(ctx, "signer", "v1")
	require.NoError(t, err)

	digest := []byte("32-byte-digest-aaaaaaaaaaaaaaaaa")
	signature, err := key.Sign(ctx, AlgRS256, digest)
	require.NoError(t, err)

	ok, err := key.Verify(ctx, AlgRS256, digest, signature)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = key.Verify(ctx, AlgRS256, digest, []byte("forged"))
	require.NoError(t, err)
	assert.False(t, ok, "failed verification is (false, nil), not an error")
}

func TestKeyCryptoOpValidation(t *testing.T) {
	client, _ := newKeyClient(t)
	ctx := context.Background()

	key, err := client.Keys().Get(ctx, "cipher", "v1")
	require.NoError(t, err)

	_, err = key.Encrypt(ctx, "", []byte("data"))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = key.Encrypt(ctx, AlgRSAOAEP, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = key.Verify(ctx, AlgRS256, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestKeyCryptoOpTargetsBoundVersion(t *testing.T) {
	client, fake := newKeyClient(t)
	ctx := context.Background()

	key, err := client.Keys().Get(ctx, "cipher", "v1")
	require.NoError(t, err)

	_, err = key.Encrypt(ctx, AlgRSAOAEP, []byte("data"))
	require.NoError(t, err)

	last := fake.requests[len(fake.requests)-1]
	assert.Equal(t, "POST /keys/cipher/v1/encrypt", last)
}
