package keyvault

import (
	"context"
	"net/url"
	"strings"
)

// Collection path segments.
const (
	collectionSecrets      = "secrets"
	collectionKeys         = "keys"
	collectionCertificates = "certificates"
	collectionStorage      = "storage"
)

// ObjectID is the full vault URL identifying one object version, e.g.
// "https://myvault.vault.azure.net/secrets/db-password/5f3a...". The
// version segment is absent when the ID refers to the current version.
type ObjectID string

// parts returns the path segments of the ID, or nil if the ID is not a
// parseable URL.
func (id ObjectID) parts() []string {
	u, err := url.Parse(string(id))
	if err != nil {
		return nil
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Collection returns the collection segment of the ID ("secrets",
// "keys", "certificates", "storage"), or "" if absent.
func (id ObjectID) Collection() string {
	if p := id.parts(); len(p) >= 1 {
		return p[0]
	}
	return ""
}

// Name returns the object name segment of the ID, or "" if absent.
func (id ObjectID) Name() string {
	if p := id.parts(); len(p) >= 2 {
		return p[1]
	}
	return ""
}

// Version returns the version segment of the ID, or "" when the ID
// refers to the current version.
func (id ObjectID) Version() string {
	if p := id.parts(); len(p) >= 3 {
		return p[2]
	}
	return ""
}

// StoredObject is the behavior shared by every versioned vault object
// handle (Secret, Key, Certificate).
//
// Handles are independent local copies; refreshing one never affects
// another, and the server's own versioning is the only consistency
// mechanism between concurrent writers.
type StoredObject interface {
	// Refresh re-fetches the object at its bound version (current
	// version if unbound), replacing local field values in place.
	Refresh(ctx context.Context) error

	// ListVersions returns summaries for every version of the object,
	// in server order.
	ListVersions(ctx context.Context) ([]VersionMeta, error)

	// SetVersion rebinds the handle to a specific version ("" for
	// current) and refreshes. Server state is never mutated.
	SetVersion(ctx context.Context, version string) error

	// Delete removes the named object and all its versions.
	Delete(ctx context.Context) error
}

// VersionMeta summarizes one version of a stored object, as returned
// by a /versions listing.
type VersionMeta struct {
	ID         ObjectID          `json:"id"`
	Attributes Attributes        `json:"attributes"`
	Tags       map[string]string `json:"tags,omitempty"`
	Managed    bool              `json:"managed,omitempty"`
}

// Version returns the version segment of the entry's ID.
func (v VersionMeta) Version() string { return v.ID.Version() }

// objectHandle is the request-building core shared by the typed
// object handles. collection is the vault path segment; version is the
// bound version, empty meaning current.
type objectHandle struct {
	c          *Client
	collection string
	name       string
	version    string
}

// path returns the vault-relative path of the bound object version.
func (h *objectHandle) path() []string {
	if h.version == "" {
		return []string{h.collection, h.name}
	}
	return []string{h.collection, h.name, h.version}
}

// listVersions pages through the object's /versions sub-path.
func (h *objectHandle) listVersions(ctx context.Context) ([]VersionMeta, error) {
	return listAll[VersionMeta](ctx, h.c, []string{h.collection, h.name, "versions"})
}

// listNames extracts object names from a collection listing, taking
// the trailing name segment of each item's id.
func listNames(ctx context.Context, c *Client, collection string) ([]string, error) {
	items, err := listAll[VersionMeta](ctx, c, []string{collection})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.ID.Name())
	}
	return names, nil
}

// deleteObject deletes the named object (all versions at once) after
// consulting the optional confirmation callback. A declined
// confirmation is a no-op, not an error.
func deleteObject(ctx context.Context, c *Client, collection, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	if !c.confirmDelete(collection, name) {
		return nil
	}
	return c.do(ctx, "DELETE", []string{collection, name}, nil, nil, nil)
}
