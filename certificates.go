package keyvault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

// Certificate content types.
const (
	ContentTypePKCS12 = "application/x-pkcs12"
	ContentTypePEM    = "application/x-pem-file"
)

// Well-known issuer provider names.
const (
	IssuerSelf    = "Self"
	IssuerUnknown = "Unknown"
)

// CertificatesClient manages the certificates collection of one vault.
// Obtain it from Client.Certificates.
type CertificatesClient struct {
	c *Client
}

// KeyProperties governs the key backing a certificate.
type KeyProperties struct {
	Exportable bool   `json:"exportable,omitempty"`
	KeyType    string `json:"kty,omitempty"`
	KeySize    int    `json:"key_size,omitempty"`
	ReuseKey   bool   `json:"reuse_key,omitempty"`
}

// SecretProperties governs the secret holding the certificate material.
type SecretProperties struct {
	ContentType string `json:"contentType,omitempty"`
}

// SubjectAlternativeNames lists the SANs requested on issuance.
type SubjectAlternativeNames struct {
	DNSNames []string `json:"dns_names,omitempty"`
	Emails   []string `json:"emails,omitempty"`
	UPNs     []string `json:"upns,omitempty"`
}

// X509Properties describes the requested certificate contents.
type X509Properties struct {
	Subject          string                   `json:"subject,omitempty"`
	SANs             *SubjectAlternativeNames `json:"sans,omitempty"`
	KeyUsage         []string                 `json:"key_usage,omitempty"`
	EnhancedKeyUsage []string                 `json:"ekus,omitempty"`
	ValidityMonths   int                      `json:"validity_months,omitempty"`
}

// IssuerParameters names the issuer a policy delegates issuance to.
// Use IssuerSelf for self-signed certificates and IssuerUnknown for
// certificates completed externally via MergeCertificate.
type IssuerParameters struct {
	Name            string `json:"name,omitempty"`
	CertificateType string `json:"cty,omitempty"`
}

// LifetimeAction pairs a renewal trigger with the action the vault
// takes when it fires.
type LifetimeAction struct {
	Trigger struct {
		LifetimePercentage int `json:"lifetime_percentage,omitempty"`
		DaysBeforeExpiry   int `json:"days_before_expiry,omitempty"`
	} `json:"trigger"`
	Action struct {
		ActionType string `json:"action_type"`
	} `json:"action"`
}

// CertificatePolicy governs certificate issuance and renewal. Once
// issuance starts the policy is immutable except through
// CertificatesClient.UpdatePolicy.
type CertificatePolicy struct {
	ID               ObjectID          `json:"id,omitempty"`
	KeyProperties    *KeyProperties    `json:"key_props,omitempty"`
	SecretProperties *SecretProperties `json:"secret_props,omitempty"`
	X509Properties   *X509Properties   `json:"x509_props,omitempty"`
	IssuerParameters *IssuerParameters `json:"issuer,omitempty"`
	LifetimeActions  []LifetimeAction  `json:"lifetime_actions,omitempty"`
	Attributes       *Attributes       `json:"attributes,omitempty"`
}

// DefaultPolicy returns a self-signed policy for subject with an
// exportable 2048-bit RSA key stored as PKCS#12, suitable as a
// starting point for Create.
func DefaultPolicy(subject string) *CertificatePolicy {
	return &CertificatePolicy{
		KeyProperties:    &KeyProperties{Exportable: true, KeyType: KeyTypeRSA, KeySize: 2048},
		SecretProperties: &SecretProperties{ContentType: ContentTypePKCS12},
		X509Properties:   &X509Properties{Subject: subject, ValidityMonths: 12},
		IssuerParameters: &IssuerParameters{Name: IssuerSelf},
	}
}

// CertificateOperation is the server-side state of a pending issuance.
type CertificateOperation struct {
	ID                    ObjectID          `json:"id,omitempty"`
	Issuer                *IssuerParameters `json:"issuer,omitempty"`
	CSR                   []byte            `json:"csr,omitempty"`
	CancellationRequested bool              `json:"cancellation_requested,omitempty"`
	Status                string            `json:"status,omitempty"`
	StatusDetails         string            `json:"status_details,omitempty"`
	Target                string            `json:"target,omitempty"`
	RequestID             string            `json:"request_id,omitempty"`
	Error                 *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// Certificate is a handle on one certificate version.
//
// Cer holds the signed certificate in DER form and is empty while
// issuance is pending; Operation carries the pending state when the
// handle came from a no-wait Create or ImportCertificate. KeyID and
// SecretID link the key and managed secret the vault maintains
// alongside the certificate.
type Certificate struct {
	ID         ObjectID           `json:"id,omitempty"`
	KeyID      string             `json:"kid,omitempty"`
	SecretID   string             `json:"sid,omitempty"`
	Thumbprint string             `json:"x5t,omitempty"`
	Cer        []byte             `json:"cer,omitempty"`
	Policy     *CertificatePolicy `json:"policy,omitempty"`
	Attributes Attributes         `json:"attributes"`
	Tags       map[string]string  `json:"tags,omitempty"`

	Operation *CertificateOperation `json:"-"`

	h objectHandle
}

var _ StoredObject = (*Certificate)(nil)

func (cc *CertificatesClient) newCertificate(name, version string) *Certificate {
	return &Certificate{h: objectHandle{c: cc.c, collection: collectionCertificates, name: name, version: version}}
}

// Issued reports whether the signed certificate bytes are present.
func (crt *Certificate) Issued() bool { return len(crt.Cer) > 0 }

// CreateCertificateOptions carries the optional fields of a Create
// call.
type CreateCertificateOptions struct {
	// NoWait returns immediately after the creation request, with the
	// handle in pending state (empty Cer). The caller observes
	// completion by calling Refresh, or Sync to block later.
	NoWait bool

	Attributes Attributes
	Tags       map[string]string
}

type createCertificateRequest struct {
	Policy     *CertificatePolicy `json:"policy,omitempty"`
	Attributes *Attributes        `json:"attributes,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
}

// Create starts issuance of a certificate under policy and, unless
// opts.NoWait is set, blocks until the vault populates the signed
// certificate. Self-signed issuance completes in seconds;
// externally-validated issuance can take arbitrarily long, so bound
// the wait with a context deadline or the client's MaxPollWait.
func (cc *CertificatesClient) Create(ctx context.Context, name string, policy *CertificatePolicy, opts *CreateCertificateOptions) (*Certificate, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: certificate policy is required", ErrMalformedInput)
	}

	body := createCertificateRequest{Policy: policy}
	if opts != nil {
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	var op CertificateOperation
	if err := cc.c.do(ctx, "POST", []string{collectionCertificates, name, "create"}, nil, body, &op); err != nil {
		return nil, err
	}

	cert := cc.newCertificate(name, "")
	cert.Operation = &op
	if opts != nil && opts.NoWait {
		return cert, nil
	}
	if err := cert.Sync(ctx); err != nil {
		return nil, err
	}
	return cert, nil
}

// ImportCertificateOptions carries the optional fields of an
// ImportCertificate call.
type ImportCertificateOptions struct {
	// Password protecting the PFX material, if any.
	Password string

	// Policy overrides the management policy derived from the imported
	// material.
	Policy *CertificatePolicy

	// NoWait mirrors CreateCertificateOptions.NoWait.
	NoWait bool

	Attributes Attributes
	Tags       map[string]string
}

type importCertificateRequest struct {
	Value      string             `json:"value"`
	Password   string             `json:"pwd,omitempty"`
	Policy     *CertificatePolicy `json:"policy,omitempty"`
	Attributes *Attributes        `json:"attributes,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
}

// ImportCertificate submits externally-generated certificate material,
// bypassing in-vault issuance. material is either PEM text or raw
// PKCS#12 (PFX) bytes; PFX is base64-encoded for transport. Unless
// opts.NoWait is set, the call blocks until the vault reports the
// certificate populated.
func (cc *CertificatesClient) ImportCertificate(ctx context.Context, name string, material []byte, opts *ImportCertificateOptions) (*Certificate, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if len(material) == 0 {
		return nil, fmt.Errorf("%w: certificate material cannot be empty", ErrMalformedInput)
	}

	body := importCertificateRequest{Value: encodeCertMaterial(material)}
	if opts != nil {
		body.Password = opts.Password
		body.Policy = opts.Policy
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	cert := cc.newCertificate(name, "")
	if err := cc.c.do(ctx, "POST", []string{collectionCertificates, name, "import"}, nil, body, cert); err != nil {
		return nil, err
	}
	cert.h.version = cert.ID.Version()
	if (opts != nil && opts.NoWait) || cert.Issued() {
		return cert, nil
	}
	if err := cert.Sync(ctx); err != nil {
		return nil, err
	}
	return cert, nil
}

// encodeCertMaterial passes PEM text through unchanged and
// base64-encodes binary PFX bytes.
func encodeCertMaterial(material []byte) string {
	if strings.HasPrefix(strings.TrimSpace(string(material)), "-----BEGIN") {
		return string(material)
	}
	return base64.StdEncoding.EncodeToString(material)
}

// Get fetches a certificate by name. version may be empty for the
// current version.
func (cc *CertificatesClient) Get(ctx context.Context, name, version string) (*Certificate, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	cert := cc.newCertificate(name, version)
	if err := cert.Refresh(ctx); err != nil {
		return nil, err
	}
	return cert, nil
}

// List returns the names of all certificates in the vault, in server
// order.
func (cc *CertificatesClient) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, cc.c, collectionCertificates)
}

// Delete removes the named certificate, all its versions, and any
// pending issuance operation. If a confirmation callback is installed
// and declines, no request is sent.
func (cc *CertificatesClient) Delete(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	if !cc.c.confirmDelete(collectionCertificates, name) {
		return nil
	}
	// Invalidate a pending issuance first; absence of one is normal.
	if err := cc.DeleteOperation(ctx, name); err != nil && !IsNotFound(err) {
		return err
	}
	return cc.c.do(ctx, "DELETE", []string{collectionCertificates, name}, nil, nil, nil)
}

// Backup returns an opaque blob encapsulating the named certificate
// and all its versions.
func (cc *CertificatesClient) Backup(ctx context.Context, name string) (string, error) {
	if err := requireName(name); err != nil {
		return "", err
	}
	var result backupResult
	if err := cc.c.do(ctx, "POST", []string{collectionCertificates, name, "backup"}, nil, nil, &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

// Restore recreates a certificate from a backup blob. Restoring into a
// vault incompatible with the blob's origin fails with an
// InvalidBackup ServiceError.
func (cc *CertificatesClient) Restore(ctx context.Context, backup string) (*Certificate, error) {
	if err := requireValue("backup blob", backup); err != nil {
		return nil, err
	}
	cert := cc.newCertificate("", "")
	body := backupResult{Value: backup}
	if err := cc.c.do(ctx, "POST", []string{collectionCertificates, "restore"}, nil, body, cert); err != nil {
		return nil, err
	}
	cert.h.name = cert.ID.Name()
	return cert, nil
}

// GetPolicy fetches the management policy of the named certificate.
func (cc *CertificatesClient) GetPolicy(ctx context.Context, name string) (*CertificatePolicy, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	var policy CertificatePolicy
	if err := cc.c.do(ctx, "GET", []string{collectionCertificates, name, "policy"}, nil, nil, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpdatePolicy merges policy into the named certificate's management
// policy and returns the server's updated representation. This is the
// only way to change a policy once issuance has started.
func (cc *CertificatesClient) UpdatePolicy(ctx context.Context, name string, policy *CertificatePolicy) (*CertificatePolicy, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: certificate policy is required", ErrMalformedInput)
	}
	var updated CertificatePolicy
	if err := cc.c.do(ctx, "PATCH", []string{collectionCertificates, name, "policy"}, nil, policy, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetOperation fetches the pending issuance state of the named
// certificate.
func (cc *CertificatesClient) GetOperation(ctx context.Context, name string) (*CertificateOperation, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	var op CertificateOperation
	if err := cc.c.do(ctx, "GET", []string{collectionCertificates, name, "pending"}, nil, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// CancelOperation asks the issuer to stop a pending issuance.
func (cc *CertificatesClient) CancelOperation(ctx context.Context, name string) (*CertificateOperation, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	body := map[string]bool{"cancellation_requested": true}
	var op CertificateOperation
	if err := cc.c.do(ctx, "PATCH", []string{collectionCertificates, name, "pending"}, nil, body, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// DeleteOperation discards a pending issuance without touching any
// already-issued versions.
func (cc *CertificatesClient) DeleteOperation(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	return cc.c.do(ctx, "DELETE", []string{collectionCertificates, name, "pending"}, nil, nil, nil)
}

// MergeCertificate completes an issuance that was performed outside
// the vault (policy issuer "Unknown") by merging the signed
// certificate chain, leaf first, each in DER form.
func (cc *CertificatesClient) MergeCertificate(ctx context.Context, name string, chain [][]byte) (*Certificate, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: merge requires at least one certificate", ErrMalformedInput)
	}

	encoded := make([]string, len(chain))
	for i, der := range chain {
		encoded[i] = base64.StdEncoding.EncodeToString(der)
	}
	body := map[string][]string{"x5c": encoded}

	cert := cc.newCertificate(name, "")
	if err := cc.c.do(ctx, "POST", []string{collectionCertificates, name, "pending", "merge"}, nil, body, cert); err != nil {
		return nil, err
	}
	cert.h.version = cert.ID.Version()
	return cert, nil
}

// Refresh implements StoredObject.
func (crt *Certificate) Refresh(ctx context.Context) error {
	var fetched Certificate
	if err := crt.h.c.do(ctx, "GET", crt.h.path(), nil, nil, &fetched); err != nil {
		return err
	}
	fetched.h = crt.h
	fetched.Operation = crt.Operation
	*crt = fetched
	return nil
}

// errIssuancePending drives the poll loop; it never escapes Sync.
var errIssuancePending = errors.New("certificate issuance pending")

// Sync blocks until the vault populates the signed certificate bytes,
// fetching the object at the client's poll interval. "Not yet issued"
// is a normal pending state; only a service error aborts the loop.
// The wait is unbounded unless the context carries a deadline or the
// client was built with a MaxPollWait, in which case exceeding it
// returns ErrPollTimeout.
func (crt *Certificate) Sync(ctx context.Context) error {
	cancel := context.CancelFunc(func() {})
	if max := crt.h.c.maxPollWait; max > 0 {
		ctx, cancel = context.WithTimeout(ctx, max)
	}
	defer cancel()

	fetch := func() error {
		if err := crt.Refresh(ctx); err != nil {
			return backoff.Permanent(err)
		}
		if !crt.Issued() {
			return errIssuancePending
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(crt.h.c.pollInterval), ctx)
	err := backoff.Retry(fetch, policy)
	if err != nil && crt.h.c.maxPollWait > 0 && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: certificate %q still pending after %s",
			ErrPollTimeout, crt.h.name, crt.h.c.maxPollWait)
	}
	return err
}

// ListVersions implements StoredObject.
func (crt *Certificate) ListVersions(ctx context.Context) ([]VersionMeta, error) {
	return crt.h.listVersions(ctx)
}

// SetVersion implements StoredObject.
func (crt *Certificate) SetVersion(ctx context.Context, version string) error {
	crt.h.version = version
	return crt.Refresh(ctx)
}

type updateCertificateRequest struct {
	Attributes *Attributes       `json:"attributes,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// UpdateAttributes merges attrs and tags into the bound certificate
// version and replaces local state with the server's updated
// representation.
func (crt *Certificate) UpdateAttributes(ctx context.Context, attrs Attributes, tags map[string]string) error {
	body := updateCertificateRequest{Tags: tags}
	if updatable := attrs.forUpdate(); updatable != (Attributes{}) {
		body.Attributes = &updatable
	}

	var updated Certificate
	if err := crt.h.c.do(ctx, "PATCH", crt.h.path(), nil, body, &updated); err != nil {
		return err
	}
	updated.h = crt.h
	updated.Operation = crt.Operation
	*crt = updated
	return nil
}

// Delete implements StoredObject.
func (crt *Certificate) Delete(ctx context.Context) error {
	return crt.h.c.Certificates().Delete(ctx, crt.h.name)
}

// Name returns the certificate's name.
func (crt *Certificate) Name() string { return crt.h.name }

// Version returns the version the handle is bound to, or "" when bound
// to the current version.
func (crt *Certificate) Version() string { return crt.h.version }
