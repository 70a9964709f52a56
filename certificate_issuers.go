package keyvault

import "context"

// IssuerCredentials authenticates the vault to an external certificate
// issuer.
type IssuerCredentials struct {
	AccountID string `json:"account_id,omitempty"`
	Password  string `json:"pwd,omitempty"`
}

// AdministratorDetails identifies an administrator contact registered
// with an issuer.
type AdministratorDetails struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrganizationDetails identifies the organization registered with an
// issuer.
type OrganizationDetails struct {
	ID           string                 `json:"id,omitempty"`
	AdminDetails []AdministratorDetails `json:"admin_details,omitempty"`
}

// Issuer is a certificate issuer registered with the vault.
type Issuer struct {
	ID           ObjectID             `json:"id,omitempty"`
	Provider     string               `json:"provider,omitempty"`
	Credentials  *IssuerCredentials   `json:"credentials,omitempty"`
	Organization *OrganizationDetails `json:"org_details,omitempty"`
	Attributes   *Attributes          `json:"attributes,omitempty"`
}

// Name returns the issuer's registered name.
func (i Issuer) Name() string {
	// Issuer IDs take the form .../certificates/issuers/{name}.
	if p := i.ID.parts(); len(p) >= 3 {
		return p[2]
	}
	return ""
}

// IssuerOptions carries the optional fields of a SetIssuer call.
type IssuerOptions struct {
	Credentials  *IssuerCredentials
	Organization *OrganizationDetails
	Enabled      *bool
}

type setIssuerRequest struct {
	Provider     string               `json:"provider"`
	Credentials  *IssuerCredentials   `json:"credentials,omitempty"`
	Organization *OrganizationDetails `json:"org_details,omitempty"`
	Attributes   *Attributes          `json:"attributes,omitempty"`
}

// SetIssuer registers or replaces the named issuer. provider names the
// issuing authority (e.g. "DigiCert", "GlobalSign", or IssuerSelf).
func (cc *CertificatesClient) SetIssuer(ctx context.Context, name, provider string, opts *IssuerOptions) (*Issuer, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("issuer provider", provider); err != nil {
		return nil, err
	}

	body := setIssuerRequest{Provider: provider}
	if opts != nil {
		body.Credentials = opts.Credentials
		body.Organization = opts.Organization
		if opts.Enabled != nil {
			body.Attributes = &Attributes{Enabled: opts.Enabled}
		}
	}

	var issuer Issuer
	if err := cc.c.do(ctx, "PUT", []string{collectionCertificates, "issuers", name}, nil, body, &issuer); err != nil {
		return nil, err
	}
	return &issuer, nil
}

// GetIssuer fetches the named issuer.
func (cc *CertificatesClient) GetIssuer(ctx context.Context, name string) (*Issuer, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	var issuer Issuer
	if err := cc.c.do(ctx, "GET", []string{collectionCertificates, "issuers", name}, nil, nil, &issuer); err != nil {
		return nil, err
	}
	return &issuer, nil
}

// ListIssuers returns all issuers registered with the vault, in server
// order. Listings carry only the issuer ID and provider; fetch details
// with GetIssuer.
func (cc *CertificatesClient) ListIssuers(ctx context.Context) ([]Issuer, error) {
	return listAll[Issuer](ctx, cc.c, []string{collectionCertificates, "issuers"})
}

// DeleteIssuer removes the named issuer registration. Certificates
// already issued are unaffected.
func (cc *CertificatesClient) DeleteIssuer(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	return cc.c.do(ctx, "DELETE", []string{collectionCertificates, "issuers", name}, nil, nil, nil)
}

// Contact is one certificate contact notified of lifetime events.
type Contact struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// contactList is the wire shape of the vault's single contact
// resource.
type contactList struct {
	ID       ObjectID  `json:"id,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`
}

// SetContacts replaces the vault's certificate contacts.
func (cc *CertificatesClient) SetContacts(ctx context.Context, contacts []Contact) ([]Contact, error) {
	if len(contacts) == 0 {
		return nil, requireValue("contacts", "")
	}
	body := contactList{Contacts: contacts}
	var result contactList
	if err := cc.c.do(ctx, "PUT", []string{collectionCertificates, "contacts"}, nil, body, &result); err != nil {
		return nil, err
	}
	return result.Contacts, nil
}

// GetContacts fetches the vault's certificate contacts.
func (cc *CertificatesClient) GetContacts(ctx context.Context) ([]Contact, error) {
	var result contactList
	if err := cc.c.do(ctx, "GET", []string{collectionCertificates, "contacts"}, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Contacts, nil
}

// DeleteContacts clears the vault's certificate contacts.
func (cc *CertificatesClient) DeleteContacts(ctx context.Context) error {
	return cc.c.do(ctx, "DELETE", []string{collectionCertificates, "contacts"}, nil, nil, nil)
}
