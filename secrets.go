package keyvault

import "context"

// SecretsClient manages the secrets collection of one vault. Obtain it
// from Client.Secrets.
type SecretsClient struct {
	c *Client
}

// Secret is a handle on one secret version fetched from the vault.
//
// Managed is true when a certificate owns this secret's lifecycle; the
// vault rejects direct writes to managed secrets. KeyID links to the
// key backing a certificate-managed secret.
type Secret struct {
	ID          ObjectID          `json:"id"`
	Value       string            `json:"value"`
	ContentType string            `json:"contentType,omitempty"`
	Managed     bool              `json:"managed,omitempty"`
	KeyID       string            `json:"kid,omitempty"`
	Attributes  Attributes        `json:"attributes"`
	Tags        map[string]string `json:"tags,omitempty"`

	h objectHandle
}

var _ StoredObject = (*Secret)(nil)

func (sc *SecretsClient) newSecret(name, version string) *Secret {
	return &Secret{h: objectHandle{c: sc.c, collection: collectionSecrets, name: name, version: version}}
}

// SetSecretOptions carries the optional fields of a Set call.
type SetSecretOptions struct {
	ContentType string
	Attributes  Attributes
	Tags        map[string]string
}

// setSecretRequest is the wire body of PUT secrets/{name}.
type setSecretRequest struct {
	Value       string            `json:"value"`
	ContentType string            `json:"contentType,omitempty"`
	Attributes  *Attributes       `json:"attributes,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Set stores value under name. Setting a name that already exists
// creates a new version and makes it current; prior versions stay
// retrievable. The returned Secret is bound to the new version.
func (sc *SecretsClient) Set(ctx context.Context, name, value string, opts *SetSecretOptions) (*Secret, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("secret value", value); err != nil {
		return nil, err
	}

	body := setSecretRequest{Value: value}
	if opts != nil {
		body.ContentType = opts.ContentType
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	secret := sc.newSecret(name, "")
	if err := sc.c.do(ctx, "PUT", []string{collectionSecrets, name}, nil, body, secret); err != nil {
		return nil, err
	}
	secret.h.version = secret.ID.Version()
	return secret, nil
}

// Get fetches a secret by name. version may be empty for the current
// version. The returned handle is bound to the requested version ("" =
// current), so later Refresh calls track the same binding.
func (sc *SecretsClient) Get(ctx context.Context, name, version string) (*Secret, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	secret := sc.newSecret(name, version)
	if err := secret.Refresh(ctx); err != nil {
		return nil, err
	}
	return secret, nil
}

// List returns the names of all secrets in the vault, in server order.
func (sc *SecretsClient) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, sc.c, collectionSecrets)
}

// Delete removes the named secret and all its versions. If a
// confirmation callback is installed and declines, no request is sent.
func (sc *SecretsClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, sc.c, collectionSecrets, name)
}

// backupResult is the wire shape of backup responses across
// collections: a single opaque blob.
type backupResult struct {
	Value string `json:"value"`
}

// Backup returns an opaque blob encapsulating the named secret and all
// its versions. The blob must be treated as a binary string, never
// parsed.
func (sc *SecretsClient) Backup(ctx context.Context, name string) (string, error) {
	if err := requireName(name); err != nil {
		return "", err
	}
	var result backupResult
	if err := sc.c.do(ctx, "POST", []string{collectionSecrets, name, "backup"}, nil, nil, &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

// Restore recreates a secret (all versions, identical attributes) from
// a backup blob. Restoring into a vault incompatible with the blob's
// origin fails with an InvalidBackup ServiceError; see IsInvalidBackup.
func (sc *SecretsClient) Restore(ctx context.Context, backup string) (*Secret, error) {
	if err := requireValue("backup blob", backup); err != nil {
		return nil, err
	}
	secret := sc.newSecret("", "")
	body := backupResult{Value: backup}
	if err := sc.c.do(ctx, "POST", []string{collectionSecrets, "restore"}, nil, body, secret); err != nil {
		return nil, err
	}
	secret.h.name = secret.ID.Name()
	return secret, nil
}

// Refresh implements StoredObject.
func (s *Secret) Refresh(ctx context.Context) error {
	var fetched Secret
	if err := s.h.c.do(ctx, "GET", s.h.path(), nil, nil, &fetched); err != nil {
		return err
	}
	fetched.h = s.h
	*s = fetched
	return nil
}

// ListVersions implements StoredObject.
func (s *Secret) ListVersions(ctx context.Context) ([]VersionMeta, error) {
	return s.h.listVersions(ctx)
}

// SetVersion implements StoredObject.
func (s *Secret) SetVersion(ctx context.Context, version string) error {
	s.h.version = version
	return s.Refresh(ctx)
}

// UpdateSecretOptions carries the type-specific fields a secret
// attribute update may merge alongside Attributes.
type UpdateSecretOptions struct {
	ContentType string
	Tags        map[string]string
}

// updateSecretRequest is the wire body of PATCH secrets/{name}/{version}.
type updateSecretRequest struct {
	ContentType string            `json:"contentType,omitempty"`
	Attributes  *Attributes       `json:"attributes,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// UpdateAttributes merges attrs (and any type-specific fields in opts)
// into the bound secret version. The server returns the updated
// representation, which replaces local state. The secret value itself
// cannot be changed this way; write a new version with Set instead.
func (s *Secret) UpdateAttributes(ctx context.Context, attrs Attributes, opts *UpdateSecretOptions) error {
	body := updateSecretRequest{}
	if updatable := attrs.forUpdate(); updatable != (Attributes{}) {
		body.Attributes = &updatable
	}
	if opts != nil {
		body.ContentType = opts.ContentType
		body.Tags = opts.Tags
	}

	var updated Secret
	if err := s.h.c.do(ctx, "PATCH", s.h.path(), nil, body, &updated); err != nil {
		return err
	}
	updated.h = s.h
	// PATCH responses omit the secret value; keep the local copy.
	updated.Value = s.Value
	*s = updated
	return nil
}

// Delete implements StoredObject. It removes the secret name entirely;
// individual versions are not independently deletable.
func (s *Secret) Delete(ctx context.Context) error {
	return deleteObject(ctx, s.h.c, collectionSecrets, s.h.name)
}

// Name returns the secret's name.
func (s *Secret) Name() string { return s.h.name }

// Version returns the version the handle is bound to, or "" when bound
// to the current version.
func (s *Secret) Version() string { return s.h.version }
