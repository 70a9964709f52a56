package keyvault

import (
	"context"
	"fmt"
)

// SAS token types accepted by SetSASDefinition.
const (
	SASTypeAccount = "account"
	SASTypeService = "service"
)

// StorageAccountsClient manages the vault's managed storage accounts.
// Obtain it from Client.StorageAccounts.
//
// Storage accounts are not versioned; the vault holds a reference to
// an Azure Storage account, rotates its keys, and issues SAS tokens
// from stored SAS definitions.
type StorageAccountsClient struct {
	c *Client
}

// StorageAccount is one managed storage-account registration.
type StorageAccount struct {
	ID                 ObjectID          `json:"id,omitempty"`
	ResourceID         string            `json:"resourceId,omitempty"`
	ActiveKeyName      string            `json:"activeKeyName,omitempty"`
	AutoRegenerateKey  bool              `json:"autoRegenerateKey,omitempty"`
	RegenerationPeriod string            `json:"regenerationPeriod,omitempty"`
	Attributes         Attributes        `json:"attributes"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// Name returns the registration name from the account's ID.
func (sa StorageAccount) Name() string { return sa.ID.Name() }

// AddStorageAccountOptions carries the optional fields of an Add call.
type AddStorageAccountOptions struct {
	// AutoRegenerateKey enables server-side key rotation.
	AutoRegenerateKey bool

	// RegenerationPeriod is the rotation interval in ISO-8601 duration
	// form (e.g. "P90D"). Required when AutoRegenerateKey is set.
	RegenerationPeriod string

	Attributes Attributes
	Tags       map[string]string
}

type addStorageAccountRequest struct {
	ResourceID         string            `json:"resourceId"`
	ActiveKeyName      string            `json:"activeKeyName"`
	AutoRegenerateKey  bool              `json:"autoRegenerateKey"`
	RegenerationPeriod string            `json:"regenerationPeriod,omitempty"`
	Attributes         *Attributes       `json:"attributes,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// Add registers a storage account with the vault. resourceID is the
// full ARM resource ID of the storage account; activeKeyName names the
// account key ("key1" or "key2") the vault uses and rotates.
func (sc *StorageAccountsClient) Add(ctx context.Context, name, resourceID, activeKeyName string, opts *AddStorageAccountOptions) (*StorageAccount, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("resource ID", resourceID); err != nil {
		return nil, err
	}
	if err := requireValue("active key name", activeKeyName); err != nil {
		return nil, err
	}

	body := addStorageAccountRequest{ResourceID: resourceID, ActiveKeyName: activeKeyName}
	if opts != nil {
		if opts.AutoRegenerateKey && opts.RegenerationPeriod == "" {
			return nil, fmt.Errorf("%w: auto key regeneration requires a regeneration period", ErrMalformedInput)
		}
		body.AutoRegenerateKey = opts.AutoRegenerateKey
		body.RegenerationPeriod = opts.RegenerationPeriod
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	var account StorageAccount
	if err := sc.c.do(ctx, "PUT", []string{collectionStorage, name}, nil, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Get fetches the named storage-account registration.
func (sc *StorageAccountsClient) Get(ctx context.Context, name string) (*StorageAccount, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	var account StorageAccount
	if err := sc.c.do(ctx, "GET", []string{collectionStorage, name}, nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// List returns the names of all managed storage accounts, in server
// order.
func (sc *StorageAccountsClient) List(ctx context.Context) ([]string, error) {
	return listNames(ctx, sc.c, collectionStorage)
}

// UpdateStorageAccountOptions carries the fields Update may change.
// Nil or zero fields are left untouched server-side.
type UpdateStorageAccountOptions struct {
	ActiveKeyName      string
	AutoRegenerateKey  *bool
	RegenerationPeriod string
	Attributes         Attributes
	Tags               map[string]string
}

type updateStorageAccountRequest struct {
	ActiveKeyName      string            `json:"activeKeyName,omitempty"`
	AutoRegenerateKey  *bool             `json:"autoRegenerateKey,omitempty"`
	RegenerationPeriod string            `json:"regenerationPeriod,omitempty"`
	Attributes         *Attributes       `json:"attributes,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// Update merges changed fields into the named registration and
// returns the server's updated representation.
func (sc *StorageAccountsClient) Update(ctx context.Context, name string, opts UpdateStorageAccountOptions) (*StorageAccount, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}

	body := updateStorageAccountRequest{
		ActiveKeyName:      opts.ActiveKeyName,
		AutoRegenerateKey:  opts.AutoRegenerateKey,
		RegenerationPeriod: opts.RegenerationPeriod,
		Tags:               opts.Tags,
	}
	if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
		body.Attributes = &attrs
	}

	var account StorageAccount
	if err := sc.c.do(ctx, "PATCH", []string{collectionStorage, name}, nil, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Delete removes the named storage-account registration. The Azure
// Storage account itself is untouched. If a confirmation callback is
// installed and declines, no request is sent.
func (sc *StorageAccountsClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, sc.c, collectionStorage, name)
}

// RegenerateKey asks the vault to regenerate the named account key
// ("key1" or "key2") and returns the updated registration. The
// regenerated key becomes the active key.
func (sc *StorageAccountsClient) RegenerateKey(ctx context.Context, name, keyName string) (*StorageAccount, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("key name", keyName); err != nil {
		return nil, err
	}

	body := map[string]string{"keyName": keyName}
	var account StorageAccount
	if err := sc.c.do(ctx, "POST", []string{collectionStorage, name, "regeneratekey"}, nil, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// SASDefinition is one stored SAS template under a managed storage
// account.
type SASDefinition struct {
	ID             ObjectID          `json:"id,omitempty"`
	SecretID       string            `json:"sid,omitempty"`
	TemplateURI    string            `json:"templateUri,omitempty"`
	SASType        string            `json:"sasType,omitempty"`
	ValidityPeriod string            `json:"validityPeriod,omitempty"`
	Attributes     Attributes        `json:"attributes"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// Name returns the definition name from the definition's ID, which
// takes the form .../storage/{account}/sas/{name}.
func (d SASDefinition) Name() string {
	if p := d.ID.parts(); len(p) >= 4 {
		return p[3]
	}
	return ""
}

// SASDefinitionOptions carries the optional fields of a
// SetSASDefinition call.
type SASDefinitionOptions struct {
	Attributes Attributes
	Tags       map[string]string
}

type setSASDefinitionRequest struct {
	TemplateURI    string            `json:"templateUri"`
	SASType        string            `json:"sasType"`
	ValidityPeriod string            `json:"validityPeriod"`
	Attributes     *Attributes       `json:"attributes,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// SetSASDefinition stores a SAS template under the named account.
// templateURI is a signed SAS URI used as the token template; sasType
// is SASTypeAccount or SASTypeService; validityPeriod is an ISO-8601
// duration (e.g. "PT1H") each issued token stays valid for.
func (sc *StorageAccountsClient) SetSASDefinition(ctx context.Context, account, name, templateURI, sasType, validityPeriod string, opts *SASDefinitionOptions) (*SASDefinition, error) {
	if err := requireName(account); err != nil {
		return nil, err
	}
	if err := requireName(name); err != nil {
		return nil, err
	}
	if err := requireValue("template URI", templateURI); err != nil {
		return nil, err
	}
	if err := requireValue("SAS type", sasType); err != nil {
		return nil, err
	}
	if err := requireValue("validity period", validityPeriod); err != nil {
		return nil, err
	}

	body := setSASDefinitionRequest{TemplateURI: templateURI, SASType: sasType, ValidityPeriod: validityPeriod}
	if opts != nil {
		body.Tags = opts.Tags
		if attrs := opts.Attributes.forUpdate(); attrs != (Attributes{}) {
			body.Attributes = &attrs
		}
	}

	var def SASDefinition
	if err := sc.c.do(ctx, "PUT", []string{collectionStorage, account, "sas", name}, nil, body, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// GetSASDefinition fetches the named SAS definition.
func (sc *StorageAccountsClient) GetSASDefinition(ctx context.Context, account, name string) (*SASDefinition, error) {
	if err := requireName(account); err != nil {
		return nil, err
	}
	if err := requireName(name); err != nil {
		return nil, err
	}
	var def SASDefinition
	if err := sc.c.do(ctx, "GET", []string{collectionStorage, account, "sas", name}, nil, nil, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ShowSASDefinition returns the current SAS token issued from the
// named definition. Issued tokens surface through the managed secret
// at the definition's SecretID; the secret's current version always
// holds a freshly valid token.
func (sc *StorageAccountsClient) ShowSASDefinition(ctx context.Context, account, name string) (string, error) {
	def, err := sc.GetSASDefinition(ctx, account, name)
	if err != nil {
		return "", err
	}
	if def.SecretID == "" {
		return "", fmt.Errorf("%w: SAS definition %q has no managed secret", ErrMalformedInput, name)
	}
	secret, err := sc.c.Secrets().Get(ctx, ObjectID(def.SecretID).Name(), "")
	if err != nil {
		return "", err
	}
	return secret.Value, nil
}

// ListSASDefinitions returns all SAS definitions stored under the
// named account, in server order.
func (sc *StorageAccountsClient) ListSASDefinitions(ctx context.Context, account string) ([]SASDefinition, error) {
	if err := requireName(account); err != nil {
		return nil, err
	}
	return listAll[SASDefinition](ctx, sc.c, []string{collectionStorage, account, "sas"})
}

// DeleteSASDefinition removes the named SAS definition. If a
// confirmation callback is installed and declines, no request is sent.
func (sc *StorageAccountsClient) DeleteSASDefinition(ctx context.Context, account, name string) error {
	if err := requireName(account); err != nil {
		return err
	}
	if err := requireName(name); err != nil {
		return err
	}
	if !sc.c.confirmDelete(collectionStorage, account+"/sas/"+name) {
		return nil
	}
	return sc.c.do(ctx, "DELETE", []string{collectionStorage, account, "sas", name}, nil, nil, nil)
}
