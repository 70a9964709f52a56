// Package keyvault provides a thin, synchronous client for the Azure Key
// Vault REST API: secrets, keys, certificates, and storage-account key
// management through a vault endpoint.
//
// The library performs no cryptography locally. Key operations
// (encrypt, decrypt, sign, verify, wrap, unwrap) are proxied to the
// vault; the only client-side crypto is PFX/PEM parsing around
// certificate import and export. All state lives in the vault service.
//
// # Key Features
//
//   - Secrets: set, get, list, delete, backup, restore, attribute updates
//   - Keys: create, import, server-side cryptographic operations
//   - Certificates: issuance with completion polling, import, policy,
//     issuer and contact management
//   - Storage accounts: key regeneration and SAS definition lifecycle
//   - Pagination, versioning, and typed service errors throughout
//
// # Quick Start
//
// Construct a client from a vault URL and a token provider, then use
// the per-collection clients:
//
//	cfg := keyvault.Config{VaultURL: "https://myvault.vault.azure.net"}
//	client, err := keyvault.NewClient(cfg, keyvault.StaticTokenProvider(token))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	secret, err := client.Secrets().Set(ctx, "db-password", "hunter2", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(secret.ID.Name(), secret.ID.Version())
//
// Token acquisition is delegated to an external identity library. The
// providers/azidentity subpackage adapts any azcore.TokenCredential
// (for example azidentity.NewDefaultAzureCredential) into a
// TokenProvider:
//
//	cred, _ := azidentity.NewDefaultAzureCredential(nil)
//	client, err := keyvault.NewClient(cfg, kvazidentity.New(cred))
//
// # Errors
//
// Every non-2xx response surfaces as a *ServiceError carrying the
// service's error code and message verbatim. Helper predicates
// (IsNotFound, IsInvalidBackup, IsAuthError) discriminate common
// cases. Client-side validation failures wrap ErrMalformedInput and
// fail fast before any request is sent. The library never retries;
// inject a retrying *http.Client (e.g. hashicorp/go-retryablehttp)
// via WithHTTPClient if transient-fault handling is wanted.
package keyvault
