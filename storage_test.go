package keyvault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorageVault simulates the managed storage-account surface:
// registrations keyed by name with nested SAS definitions.
type fakeStorageVault struct {
	baseURL  string
	accounts map[string]map[string]any
	sasDefs  map[string]map[string]map[string]any // account -> sas name -> def
	tokens   map[string]string                    // managed secret name -> issued SAS token
}

func newFakeStorageVault() *fakeStorageVault {
	return &fakeStorageVault{
		accounts: map[string]map[string]any{},
		sasDefs:  map[string]map[string]map[string]any{},
		tokens:   map[string]string{},
	}
}

func (f *fakeStorageVault) writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": code, "message": msg}})
}

func (f *fakeStorageVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	w.Header().Set("Content-Type", "application/json")

	// Issued SAS tokens surface through managed secrets.
	if segments[0] == "secrets" && len(segments) == 2 && r.Method == "GET" {
		token, ok := f.tokens[segments[1]]
		if !ok {
			f.writeError(w, http.StatusNotFound, "SecretNotFound", "no such secret")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         fmt.Sprintf("%s/secrets/%s/v1", f.baseURL, segments[1]),
			"value":      token,
			"managed":    true,
			"attributes": map[string]any{"enabled": true},
		})
		return
	}

	if segments[0] != "storage" {
		f.writeError(w, http.StatusNotFound, "NotFound", "unknown path")
		return
	}
	rest := segments[1:]

	switch {
	case len(rest) == 0 && r.Method == "GET":
		items := make([]map[string]any, 0, len(f.accounts))
		for _, acct := range f.accounts {
			items = append(items, map[string]any{"id": acct["id"], "attributes": acct["attributes"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": items})

	case len(rest) == 1 && r.Method == "PUT":
		name := rest[0]
		acct := readJSON(r)
		acct["id"] = fmt.Sprintf("%s/storage/%s", f.baseURL, name)
		if acct["attributes"] == nil {
			acct["attributes"] = map[string]any{"enabled": true}
		}
		f.accounts[name] = acct
		_ = json.NewEncoder(w).Encode(acct)

	case len(rest) == 1 && r.Method == "GET":
		acct, ok := f.accounts[rest[0]]
		if !ok {
			f.writeError(w, http.StatusNotFound, "StorageAccountNotFound", "no such account")
			return
		}
		_ = json.NewEncoder(w).Encode(acct)

	case len(rest) == 1 && r.Method == "PATCH":
		acct, ok := f.accounts[rest[0]]
		if !ok {
			f.writeError(w, http.StatusNotFound, "StorageAccountNotFound", "no such account")
			return
		}
		for k, v := range readJSON(r) {
			acct[k] = v
		}
		_ = json.NewEncoder(w).Encode(acct)

	case len(rest) == 1 && r.Method == "DELETE":
		if _, ok := f.accounts[rest[0]]; !ok {
			f.writeError(w, http.StatusNotFound, "StorageAccountNotFound", "no such account")
			return
		}
		delete(f.accounts, rest[0])
		delete(f.sasDefs, rest[0])

	case len(rest) == 2 && rest[1] == "regeneratekey" && r.Method == "POST":
		acct, ok := f.accounts[rest[0]]
		if !ok {
			f.writeError(w, http.StatusNotFound, "StorageAccountNotFound", "no such account")
			return
		}
		req := readJSON(r)
		acct["activeKeyName"] = req["keyName"]
		_ = json.NewEncoder(w).Encode(acct)

	case len(rest) >= 2 && rest[1] == "sas":
		f.serveSAS(w, r, rest[0], rest[2:])

	default:
		f.writeError(w, http.StatusNotFound, "NotFound", "unknown path")
	}
}

func (f *fakeStorageVault) serveSAS(w http.ResponseWriter, r *http.Request, account string, rest []string) {
	defs := f.sasDefs[account]

	if len(rest) == 0 && r.Method == "GET" {
		items := make([]map[string]any, 0, len(defs))
		for _, def := range defs {
			items = append(items, def)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": items})
		return
	}
	if len(rest) != 1 {
		f.writeError(w, http.StatusNotFound, "NotFound", "unknown path")
		return
	}
	name := rest[0]

	switch r.Method {
	case "PUT":
		def := readJSON(r)
		def["id"] = fmt.Sprintf("%s/storage/%s/sas/%s", f.baseURL, account, name)
		def["sid"] = fmt.Sprintf("%s/secrets/%s-%s", f.baseURL, account, name)
		f.tokens[account+"-"+name] = fmt.Sprintf("sv=2021-08-06&ss=b&sig=issued-for-%s", name)
		if def["attributes"] == nil {
			def["attributes"] = map[string]any{"enabled": true}
		}
		if defs == nil {
			defs = map[string]map[string]any{}
			f.sasDefs[account] = defs
		}
		defs[name] = def
		_ = json.NewEncoder(w).Encode(def)
	case "GET":
		def, ok := defs[name]
		if !ok {
			f.writeError(w, http.StatusNotFound, "SasDefinitionNotFound", "no such definition")
			return
		}
		_ = json.NewEncoder(w).Encode(def)
	case "DELETE":
		if _, ok := defs[name]; !ok {
			f.writeError(w, http.StatusNotFound, "SasDefinitionNotFound", "no such definition")
			return
		}
		delete(defs, name)
	}
}

func newStorageClient(t *testing.T, opts ...Option) (*Client, *fakeStorageVault) {
	t.Helper()
	fake := newFakeStorageVault()
	client, srv := newTestClient(t, fake, opts...)
	fake.baseURL = srv.URL
	return client, fake
}

const testResourceID = "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/logs"

func TestStorageAccountAddAndGet(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	added, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", &AddStorageAccountOptions{
		AutoRegenerateKey:  true,
		RegenerationPeriod: "P90D",
	})
	require.NoError(t, err)
	assert.Equal(t, "logs", added.Name())
	assert.Equal(t, testResourceID, added.ResourceID)
	assert.Equal(t, "key1", added.ActiveKeyName)
	assert.True(t, added.AutoRegenerateKey)

	got, err := client.StorageAccounts().Get(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "P90D", got.RegenerationPeriod)
}

func TestStorageAccountAddValidation(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", "", "key1", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = client.StorageAccounts().Add(ctx, "logs", testResourceID, "", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1",
		&AddStorageAccountOptions{AutoRegenerateKey: true})
	assert.ErrorIs(t, err, ErrMalformedInput, "auto regeneration without a period is rejected locally")
}

func TestStorageAccountUpdate(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", nil)
	require.NoError(t, err)

	updated, err := client.StorageAccounts().Update(ctx, "logs", UpdateStorageAccountOptions{
		ActiveKeyName:      "key2",
		AutoRegenerateKey:  Bool(true),
		RegenerationPeriod: "P30D",
	})
	require.NoError(t, err)
	assert.Equal(t, "key2", updated.ActiveKeyName)
	assert.True(t, updated.AutoRegenerateKey)
	assert.Equal(t, "P30D", updated.RegenerationPeriod)
}

func TestStorageAccountRegenerateKey(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", nil)
	require.NoError(t, err)

	account, err := client.StorageAccounts().RegenerateKey(ctx, "logs", "key2")
	require.NoError(t, err)
	assert.Equal(t, "key2", account.ActiveKeyName, "the regenerated key becomes active")

	_, err = client.StorageAccounts().RegenerateKey(ctx, "logs", "")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestStorageAccountListAndDelete(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	for _, name := range []string{"logs", "backups"} {
		_, err := client.StorageAccounts().Add(ctx, name, testResourceID, "key1", nil)
		require.NoError(t, err)
	}

	names, err := client.StorageAccounts().List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"logs", "backups"}, names)

	require.NoError(t, client.StorageAccounts().Delete(ctx, "logs"))
	_, err = client.StorageAccounts().Get(ctx, "logs")
	assert.True(t, IsNotFound(err))
}

func TestSASDefinitionLifecycle(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", nil)
	require.NoError(t, err)

	def, err := client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader",
		"https://logs.blob.core.windows.net/?sv=2021-08-06&sig=template", SASTypeAccount, "PT1H", nil)
	require.NoError(t, err)
	assert.Equal(t, "reader", def.Name())
	assert.Equal(t, SASTypeAccount, def.SASType)
	assert.NotEmpty(t, def.SecretID, "issued tokens surface through a managed secret")

	got, err := client.StorageAccounts().GetSASDefinition(ctx, "logs", "reader")
	require.NoError(t, err)
	assert.Equal(t, "PT1H", got.ValidityPeriod)

	all, err := client.StorageAccounts().ListSASDefinitions(ctx, "logs")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "reader", all[0].Name())

	require.NoError(t, client.StorageAccounts().DeleteSASDefinition(ctx, "logs", "reader"))
	_, err = client.StorageAccounts().GetSASDefinition(ctx, "logs", "reader")
	assert.True(t, IsNotFound(err))
}

func TestSASDefinitionShow(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", nil)
	require.NoError(t, err)
	_, err = client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader",
		"https://logs.blob.core.windows.net/?sig=template", SASTypeAccount, "PT1H", nil)
	require.NoError(t, err)

	token, err := client.StorageAccounts().ShowSASDefinition(ctx, "logs", "reader")
	require.NoError(t, err)
	assert.Equal(t, "sv=2021-08-06&ss=b&sig=issued-for-reader", token)

	_, err = client.StorageAccounts().ShowSASDefinition(ctx, "logs", "absent")
	assert.True(t, IsNotFound(err))
}

func TestSASDefinitionDeleteConfirmDeclined(t *testing.T) {
	var asked string
	client, _ := newStorageClient(t, WithConfirmFunc(func(objectType, name string) bool {
		asked = objectType + "/" + name
		return false
	}))
	ctx := context.Background()

	_, err := client.StorageAccounts().Add(ctx, "logs", testResourceID, "key1", nil)
	require.NoError(t, err)
	_, err = client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader",
		"https://logs.blob.core.windows.net/?sig=t", SASTypeService, "PT1H", nil)
	require.NoError(t, err)

	require.NoError(t, client.StorageAccounts().DeleteSASDefinition(ctx, "logs", "reader"))
	assert.Equal(t, "storage/logs/sas/reader", asked)

	_, err = client.StorageAccounts().GetSASDefinition(ctx, "logs", "reader")
	assert.NoError(t, err, "declined confirmation leaves the definition in place")
}

func TestStorageAccountValidationMissingSASFields(t *testing.T) {
	client, _ := newStorageClient(t)
	ctx := context.Background()

	_, err := client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader", "", SASTypeAccount, "PT1H", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader", "uri", "", "PT1H", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = client.StorageAccounts().SetSASDefinition(ctx, "logs", "reader", "uri", SASTypeAccount, "", nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
