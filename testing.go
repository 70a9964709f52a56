package keyvault

// This file provides an in-memory fake vault for use in examples and
// external testing. It implements enough of the secrets surface to
// exercise versioning, pagination, deletion, and backup/restore
// without a real vault.

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeVault is an in-memory, HTTP-served fake of the vault's secrets
// collection. Serve it with httptest.NewServer and point a Client at
// the server URL:
//
//	fake := keyvault.NewFakeVault()
//	srv := httptest.NewServer(fake)
//	defer srv.Close()
//	fake.SetBaseURL(srv.URL)
//
//	client, _ := keyvault.NewClient(
//	    keyvault.Config{VaultURL: srv.URL},
//	    keyvault.StaticTokenProvider("fake-token"),
//	)
//
// FakeVault is safe for concurrent use.
type FakeVault struct {
	mu       sync.Mutex
	baseURL  string
	boundary string
	secrets  map[string][]*fakeSecretVersion
	names    []string
	pageSize int
}

type fakeSecretVersion struct {
	Version     string
	Value       string
	ContentType string
	Attributes  Attributes
	Tags        map[string]string
}

// NewFakeVault creates an empty fake vault.
func NewFakeVault() *FakeVault {
	return NewFakeVaultWithBoundary("fake-boundary")
}

// NewFakeVaultWithBoundary creates a fake vault in the named
// compatibility boundary. Backup blobs record the boundary; restoring
// into a fake with a different boundary fails with an InvalidBackup
// service error, mimicking cross-region or cross-HSM restores.
func NewFakeVaultWithBoundary(boundary string) *FakeVault {
	return &FakeVault{
		boundary: boundary,
		secrets:  make(map[string][]*fakeSecretVersion),
		pageSize: 3,
	}
}

// SetBaseURL sets the URL object IDs are minted under. Call it with
// the httptest server URL before issuing requests.
func (f *FakeVault) SetBaseURL(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseURL = strings.TrimSuffix(u, "/")
}

// SetPageSize overrides the fake's list page size (default 3), letting
// tests force multi-page listings with few items.
func (f *FakeVault) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

func (f *FakeVault) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (f *FakeVault) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *FakeVault) secretID(name, version string) string {
	return fmt.Sprintf("%s/secrets/%s/%s", f.baseURL, name, version)
}

func (f *FakeVault) bundle(name string, v *fakeSecretVersion) map[string]any {
	b := map[string]any{
		"id":         f.secretID(name, v.Version),
		"value":      v.Value,
		"attributes": v.Attributes,
	}
	if v.ContentType != "" {
		b["contentType"] = v.ContentType
	}
	if len(v.Tags) > 0 {
		b["tags"] = v.Tags
	}
	return b
}

// ServeHTTP implements http.Handler.
func (f *FakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		f.writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if segments[0] != "secrets" {
		f.writeError(w, http.StatusNotFound, "NotFound", "unsupported collection")
		return
	}

	switch {
	case len(segments) == 1 && r.Method == "GET":
		f.handleList(w, r)
	case len(segments) == 2 && segments[1] == "restore" && r.Method == "POST":
		f.handleRestore(w, r)
	case len(segments) == 2 && r.Method == "PUT":
		f.handleSet(w, r, segments[1])
	case len(segments) == 2 && r.Method == "DELETE":
		f.handleDelete(w, segments[1])
	case len(segments) == 3 && segments[2] == "backup" && r.Method == "POST":
		f.handleBackup(w, segments[1])
	case len(segments) == 3 && segments[2] == "versions" && r.Method == "GET":
		f.handleVersions(w, r, segments[1])
	case (len(segments) == 2 || len(segments) == 3) && r.Method == "GET":
		f.handleGet(w, segments)
	case (len(segments) == 2 || len(segments) == 3) && r.Method == "PATCH":
		f.handleUpdate(w, r, segments)
	default:
		f.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method+" not supported here")
	}
}

func (f *FakeVault) handleSet(w http.ResponseWriter, r *http.Request, name string) {
	var req struct {
		Value       string            `json:"value"`
		ContentType string            `json:"contentType"`
		Attributes  *Attributes       `json:"attributes"`
		Tags        map[string]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, http.StatusBadRequest, "BadParameter", err.Error())
		return
	}

	now := NewUnixTime(time.Now().UTC())
	version := &fakeSecretVersion{
		Version:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		Value:       req.Value,
		ContentType: req.ContentType,
		Tags:        req.Tags,
		Attributes:  Attributes{Enabled: Bool(true), Created: now, Updated: now, RecoveryLevel: "Purgeable"},
	}
	if req.Attributes != nil {
		if req.Attributes.Enabled != nil {
			version.Attributes.Enabled = req.Attributes.Enabled
		}
		version.Attributes.NotBefore = req.Attributes.NotBefore
		version.Attributes.Expires = req.Attributes.Expires
	}

	if _, exists := f.secrets[name]; !exists {
		f.names = append(f.names, name)
	}
	f.secrets[name] = append(f.secrets[name], version)
	f.writeJSON(w, f.bundle(name, version))
}

func (f *FakeVault) lookup(name, version string) *fakeSecretVersion {
	versions := f.secrets[name]
	if len(versions) == 0 {
		return nil
	}
	if version == "" {
		return versions[len(versions)-1]
	}
	for _, v := range versions {
		if v.Version == version {
			return v
		}
	}
	return nil
}

func (f *FakeVault) handleGet(w http.ResponseWriter, segments []string) {
	name := segments[1]
	version := ""
	if len(segments) == 3 {
		version = segments[2]
	}
	v := f.lookup(name, version)
	if v == nil {
		f.writeError(w, http.StatusNotFound, "SecretNotFound", "secret "+name+" not found")
		return
	}
	f.writeJSON(w, f.bundle(name, v))
}

func (f *FakeVault) handleUpdate(w http.ResponseWriter, r *http.Request, segments []string) {
	name := segments[1]
	version := ""
	if len(segments) == 3 {
		version = segments[2]
	}
	v := f.lookup(name, version)
	if v == nil {
		f.writeError(w, http.StatusNotFound, "SecretNotFound", "secret "+name+" not found")
		return
	}

	var req struct {
		ContentType string            `json:"contentType"`
		Attributes  *Attributes       `json:"attributes"`
		Tags        map[string]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, http.StatusBadRequest, "BadParameter", err.Error())
		return
	}

	if req.ContentType != "" {
		v.ContentType = req.ContentType
	}
	if req.Tags != nil {
		v.Tags = req.Tags
	}
	if req.Attributes != nil {
		if req.Attributes.Enabled != nil {
			v.Attributes.Enabled = req.Attributes.Enabled
		}
		if req.Attributes.NotBefore != nil {
			v.Attributes.NotBefore = req.Attributes.NotBefore
		}
		if req.Attributes.Expires != nil {
			v.Attributes.Expires = req.Attributes.Expires
		}
	}
	v.Attributes.Updated = NewUnixTime(time.Now().UTC())

	// PATCH responses omit the secret value.
	b := f.bundle(name, v)
	delete(b, "value")
	f.writeJSON(w, b)
}

func (f *FakeVault) handleDelete(w http.ResponseWriter, name string) {
	if _, exists := f.secrets[name]; !exists {
		f.writeError(w, http.StatusNotFound, "SecretNotFound", "secret "+name+" not found")
		return
	}
	delete(f.secrets, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusOK)
}

// paginate serves one page of items, minting a nextLink when more
// remain.
func (f *FakeVault) paginate(w http.ResponseWriter, r *http.Request, path string, items []map[string]any) {
	skip := 0
	if raw := r.URL.Query().Get("$skiptoken"); raw != "" {
		skip, _ = strconv.Atoi(raw)
	}
	size := f.pageSize
	if raw := r.URL.Query().Get("maxresults"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n < size {
			size = n
		}
	}

	end := skip + size
	if end > len(items) {
		end = len(items)
	}
	page := map[string]any{"value": items[skip:end]}
	if end < len(items) {
		page["nextLink"] = fmt.Sprintf("%s%s?api-version=%s&$skiptoken=%d",
			f.baseURL, path, r.URL.Query().Get("api-version"), end)
	}
	f.writeJSON(w, page)
}

func (f *FakeVault) handleList(w http.ResponseWriter, r *http.Request) {
	items := make([]map[string]any, 0, len(f.names))
	for _, name := range f.names {
		current := f.secrets[name][len(f.secrets[name])-1]
		items = append(items, map[string]any{
			"id":         fmt.Sprintf("%s/secrets/%s", f.baseURL, name),
			"attributes": current.Attributes,
		})
	}
	f.paginate(w, r, "/secrets", items)
}

func (f *FakeVault) handleVersions(w http.ResponseWriter, r *http.Request, name string) {
	versions, exists := f.secrets[name]
	if !exists {
		f.writeError(w, http.StatusNotFound, "SecretNotFound", "secret "+name+" not found")
		return
	}
	items := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		items = append(items, map[string]any{
			"id":         f.secretID(name, v.Version),
			"attributes": v.Attributes,
		})
	}
	f.paginate(w, r, "/secrets/"+name+"/versions", items)
}

// fakeBackup is the decoded form of the fake's opaque backup blobs.
type fakeBackup struct {
	Boundary string               `json:"boundary"`
	Name     string               `json:"name"`
	Versions []*fakeSecretVersion `json:"versions"`
}

func (f *FakeVault) handleBackup(w http.ResponseWriter, name string) {
	versions, exists := f.secrets[name]
	if !exists {
		f.writeError(w, http.StatusNotFound, "SecretNotFound", "secret "+name+" not found")
		return
	}
	encoded, _ := json.Marshal(fakeBackup{Boundary: f.boundary, Name: name, Versions: versions})
	f.writeJSON(w, map[string]string{"value": base64.RawURLEncoding.EncodeToString(encoded)})
}

func (f *FakeVault) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.writeError(w, http.StatusBadRequest, "BadParameter", err.Error())
		return
	}

	decoded, err := base64.RawURLEncoding.DecodeString(req.Value)
	var backup fakeBackup
	if err == nil {
		err = json.Unmarshal(decoded, &backup)
	}
	if err != nil || len(backup.Versions) == 0 {
		f.writeError(w, http.StatusBadRequest, "InvalidBackup", "backup blob is not parseable")
		return
	}
	if backup.Boundary != f.boundary {
		f.writeError(w, http.StatusBadRequest, "InvalidBackup",
			"backup originates from an incompatible vault")
		return
	}

	if _, exists := f.secrets[backup.Name]; !exists {
		f.names = append(f.names, backup.Name)
	}
	f.secrets[backup.Name] = backup.Versions
	current := backup.Versions[len(backup.Versions)-1]
	f.writeJSON(w, f.bundle(backup.Name, current))
}
