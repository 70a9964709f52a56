package keyvault

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Key types accepted by Create and ImportKey.
const (
	KeyTypeRSA    = "RSA"
	KeyTypeRSAHSM = "RSA-HSM"
	KeyTypeEC     = "EC"
	KeyTypeECHSM  = "EC-HSM"
	KeyTypeOct    = "oct"
)

// Encryption and wrapping algorithms proxied to the vault.
const (
	AlgRSA15      = "RSA1_5"
	AlgRSAOAEP    = "RSA-OAEP"
	AlgRSAOAEP256 = "RSA-OAEP-256"
)

// Signing algorithms proxied to the vault.
const (
	AlgRS256 = "RS256"
	AlgRS384 = "RS384"
	AlgRS512 = "RS512"
	AlgPS256 = "PS256"
	AlgES256 = "ES256"
	AlgES384 = "ES384"
)

// KeysClient manages the keys collection of one vault. Obtain it from
// Client.Keys.
type KeysClient struct {
	c *Client
}

// JSONWebKey is the vault's wire representation of key material.
// Byte-valued fields are base64url-encoded. Private fields are only
// populated on import, never returned by the service.
type JSONWebKey struct {
	KeyID   string   `json:"kid,omitempty"`
	KeyType string   `json:"kty,omitempty"`
	KeyOps  []string `json:"key_ops,omitempty"`

	// RSA components
	N  string `json:"n,omitempty"`
	E  string `json:"e,omitempty"`
	D  string `json:"d,omitempty"`
	DP string `json:"dp,omitempty"`
	DQ string `json:"dq,omitempty"`
	QI string `json:"qi,omitempty"`
	P  string `json:"p,omitempty"`
	Q  string `json:"q,omitempty"`

	// EC components
	Curve string `json:"crv,omitempty"`
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`

	// Symmetric key material
	K string `json:"k,omitempty"`
}

// Key is a handle on one key version. The key material itself never
// leaves the vault for HSM-backed keys; Key carries the public half
// plus metadata.
type Key struct {
	Key        JSONWebKey        `json:"key"`
	Attributes Attributes        `json:"attributes"`
	Tags       map[string]string `json:"tags,omitempty"`
	Managed    bool              `json:"managed,omitempty"`

	h objectHandle
}

var _ StoredObject = (*Key)(nil)

func (kc *KeysClient) newKey(name, version string) *Key {
	return &Key{h: objectHandle{c: kc.c, collection: collectionKeys, name: name, version: version}}
}

// CreateKeyOptions carries the optional fields of a Create call.
type CreateKeyOptions struct {
	// KeySize in bits for RSA keys (e.g. 2048, 3072, 4096).
	KeySize int

	// Curve name for EC keys (e.g. "P-256").
	Curve string

	// KeyOps restricts the operations the key may perform.
	KeyOps []string

	Attributes Attributes
	Tags       map[string]string
}

type createKeyRequest struct {
	KeyType    string            `json:"kty"`
	KeySize    int               `json:"key_size,omitempty"`
	Curve      string            `json:"crv,omitempty"`
	KeyOps     []string          `json:"key_ops,omitempty"`
	Attributes *Attributes       `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Create generates a new key of the given type inside the vault.
// Creating a name that already exists makes a new current version.
func (kc *KeysClient) Create(ctx context.Context, name, keyType string, opts *CreateKeyOptions) (*Key, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("key type", keyType); err != nil {
		return nil, err
	}

	body := createKeyRequest{KeyType: keyType}
	if opts != nil {
		body.KeySize = opts.KeySize
		body.Curve = opts.Curve
		body.KeyOps = opts.KeyOps
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	key := kc.newKey(name, "")
	if err := kc.c.do(ctx, "POST", []string{collectionKeys, name, "create"}, nil, body, key); err != nil {
		return nil, err
	}
	key.h.version = ObjectID(key.Key.KeyID).Version()
	return key, nil
}

// ImportKeyOptions carries the optional fields of an ImportKey call.
type ImportKeyOptions struct {
	// HSM imports the key into the vault's HSM boundary.
	HSM bool

	Attributes Attributes
	Tags       map[string]string
}

type importKeyRequest struct {
	Key        JSONWebKey        `json:"key"`
	HSM        bool              `json:"hsm,omitempty"`
	Attributes *Attributes       `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// ImportKey submits externally-generated key material, bypassing
// in-vault generation.
func (kc *KeysClient) ImportKey(ctx context.Context, name string, material JSONWebKey, opts *ImportKeyOptions) (*Key, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if material.KeyType == "" {
		return nil, fmt.Errorf("%w: imported key material must carry a key type", ErrMalformedInput)
	}

	body := importKeyRequest{Key: material}
	if opts != nil {
		body.HSM = opts.HSM
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	key := kc.newKey(name, "")
	if err := kc.c.do(ctx, "PUT", []string{collectionKeys, name}, nil, body, key); err != nil {
		return nil, err
	}
	key.h.version = ObjectID(key.Key.KeyID).Version()
	return key, nil
}

// Get fetches a key by name. version may be empty for the current
// version.
func (kc *KeysClient) Get(ctx context.Context, name, version string) (*Key, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	key := kc.newKey(name, version)
	if err := key.Refresh(ctx); err != nil {
		return nil, err
	}
	return key, nil
}

// List returns the names of all keys in the vault, in server order.
func (kc *KeysClient) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, kc.c, collectionKeys)
}

// Delete removes the named key and all its versions. If a confirmation
// callback is installed and declines, no request is sent.
func (kc *KeysClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, kc.c, collectionKeys, name)
}

// Backup returns an opaque blob encapsulating the named key and all
// its versions.
func (kc *KeysClient) Backup(ctx context.Context, name string) (string, error) {
	if err := requireName(name); err != nil {
		return "", err
	}
	var result backupResult
	if err := kc.c.do(ctx, "POST", []string{collectionKeys, name, "backup"}, nil, nil, &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

// Restore recreates a key from a backup blob. Restoring into a vault
// incompatible with the blob's origin (region or HSM boundary) fails
// with an InvalidBackup ServiceError.
func (kc *KeysClient) Restore(ctx context.Context, backup string) (*Key, error) {
	if err := requireValue("backup blob", backup); err != nil {
		return nil, err
	}
	key := kc.newKey("", "")
	body := backupResult{Value: backup}
	if err := kc.c.do(ctx, "POST", []string{collectionKeys, "restore"}, nil, body, key); err != nil {
		return nil, err
	}
	key.h.name = ObjectID(key.Key.KeyID).Name()
	return key, nil
}

// Refresh implements StoredObject.
func (k *Key) Refresh(ctx context.Context) error {
	var fetched Key
	if err := k.h.c.do(ctx, "GET", k.h.path(), nil, nil, &fetched); err != nil {
		return err
	}
	fetched.h = k.h
	*k = fetched
	return nil
}

// ListVersions implements StoredObject.
func (k *Key) ListVersions(ctx context.Context) ([]VersionMeta, error) {
	return k.h.listVersions(ctx)
}

// SetVersion implements StoredObject.
func (k *Key) SetVersion(ctx context.Context, version string) error {
	k.h.version = version
	return k.Refresh(ctx)
}

// UpdateKeyOptions carries the type-specific fields a key attribute
// update may merge alongside Attributes.
type UpdateKeyOptions struct {
	KeyOps []string
	Tags   map[string]string
}

type updateKeyRequest struct {
	KeyOps     []string          `json:"key_ops,omitempty"`
	Attributes *Attributes       `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// UpdateAttributes merges attrs (and any fields in opts) into the
// bound key version and replaces local state with the server's
// updated representation.
func (k *Key) UpdateAttributes(ctx context.Context, attrs Attributes, opts *UpdateKeyOptions) error {
	body := updateKeyRequest{}
	if updatable := attrs.forUpdate(); updatable != (Attributes{}) {
		body.Attributes = &updatable
	}
	if opts != nil {
		body.KeyOps = opts.KeyOps
		body.Tags = opts.Tags
	}

	var updated Key
	if err := k.h.c.do(ctx, "PATCH", k.h.path(), nil, body, &updated); err != nil {
		return err
	}
	updated.h = k.h
	*k = updated
	return nil
}

// Delete implements StoredObject.
func (k *Key) Delete(ctx context.Context) error {
	return deleteObject(ctx, k.h.c, collectionKeys, k.h.name)
}

// Name returns the key's name.
func (k *Key) Name() string { return k.h.name }

// Version returns the version the handle is bound to, or "" when bound
// to the current version.
func (k *Key) Version() string { return k.h.version }

// keyOpRequest/keyOpResult are the wire shapes of the server-proxied
// cryptographic operations. Values are base64url without padding.
type keyOpRequest struct {
	Algorithm string `json:"alg"`
	Value     string `json:"value"`
	Digest    string `json:"digest,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type keyOpResult struct {
	KeyID string `json:"kid"`
	Value string `json:"value"`
}

// cryptoOp posts one cryptographic operation against the bound key
// version. All computation happens server-side.
func (k *Key) cryptoOp(ctx context.Context, op, alg string, value []byte) ([]byte, error) {
	if err := requireValue("algorithm", alg); err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: %s input cannot be empty", ErrMalformedInput, op)
	}

	body := keyOpRequest{Algorithm: alg, Value: base64.RawURLEncoding.EncodeToString(value)}
	var result keyOpResult
	if err := k.h.c.do(ctx, "POST", append(k.h.path(), op), nil, body, &result); err != nil {
		return nil, err
	}

	decoded, err := base64.RawURLEncoding.DecodeString(result.Value)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", op, err)
	}
	return decoded, nil
}

// Encrypt encrypts plaintext with the bound key version using the
// given algorithm. The operation is proxied to the vault.
func (k *Key) Encrypt(ctx context.Context, alg string, plaintext []byte) ([]byte, error) {
	return k.cryptoOp(ctx, "encrypt", alg, plaintext)
}

// Decrypt decrypts ciphertext produced by Encrypt.
func (k *Key) Decrypt(ctx context.Context, alg string, ciphertext []byte) ([]byte, error) {
	return k.cryptoOp(ctx, "decrypt", alg, ciphertext)
}

// WrapKey wraps externally-held symmetric key material with the bound
// key version.
func (k *Key) WrapKey(ctx context.Context, alg string, material []byte) ([]byte, error) {
	return k.cryptoOp(ctx, "wrapkey", alg, material)
}

// UnwrapKey unwraps key material produced by WrapKey.
func (k *Key) UnwrapKey(ctx context.Context, alg string, wrapped []byte) ([]byte, error) {
	return k.cryptoOp(ctx, "unwrapkey", alg, wrapped)
}

// Sign signs a precomputed digest with the bound key version.
func (k *Key) Sign(ctx context.Context, alg string, digest []byte) ([]byte, error) {
	return k.cryptoOp(ctx, "sign", alg, digest)
}

// Verify checks a signature over digest against the bound key version.
// A failed verification returns (false, nil); errors are reserved for
// transport and service failures.
func (k *Key) Verify(ctx context.Context, alg string, digest, signature []byte) (bool, error) {
	if err := requireValue("algorithm", alg); err != nil {
		return false, err
	}
	if len(digest) == 0 || len(signature) == 0 {
		return false, fmt.Errorf("%w: verify requires a digest and a signature", ErrMalformedInput)
	}

	body := keyOpRequest{
		Algorithm: alg,
		Digest:    base64.RawURLEncoding.EncodeToString(digest),
		Value:     base64.RawURLEncoding.EncodeToString(signature),
	}
	var result struct {
		Value bool `json:"value"`
	}
	if err := k.h.c.do(ctx, "POST", append(k.h.path(), "verify"), nil, body, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}
