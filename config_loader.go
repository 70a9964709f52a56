package keyvault

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment loads configuration from environment
// variables, following the 12-factor app methodology.
//
// A .env file in the working directory is loaded first if present
// (existing environment variables are never overridden).
//
// Required environment variables:
//   - KEYVAULT_URL: base URL of the vault
//
// Optional environment variables (defaults are applied if not set):
//   - KEYVAULT_API_VERSION: service api-version
//   - KEYVAULT_POLL_INTERVAL: certificate poll interval (Go duration, e.g. "5s")
//
// Example usage:
//
//	// export KEYVAULT_URL="https://myvault.vault.azure.net"
//	cfg, err := keyvault.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := keyvault.NewClient(cfg, provider)
func LoadConfigFromEnvironment() (Config, error) {
	// Best-effort; a missing .env file is not an error.
	_ = godotenv.Load()

	vaultURL := os.Getenv(EnvVaultURL)
	if vaultURL == "" {
		return Config{}, fmt.Errorf("%w: %s environment variable is required", ErrInvalidConfiguration, EnvVaultURL)
	}

	cfg := Config{
		VaultURL:   vaultURL,
		APIVersion: os.Getenv(EnvAPIVersion),
	}

	if raw := os.Getenv(EnvPollInterval); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s is not a valid duration: %w", ErrInvalidConfiguration, EnvPollInterval, err)
		}
		cfg.PollInterval = interval
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromFile loads configuration from a YAML file.
//
// Example file:
//
//	vault_url: https://myvault.vault.azure.net
//	api_version: "7.4"
//	poll_interval: 5s
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw struct {
		VaultURL     string `yaml:"vault_url"`
		APIVersion   string `yaml:"api_version"`
		PollInterval string `yaml:"poll_interval"`
		MaxPollWait  string `yaml:"max_poll_wait"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: parse config file %q: %w", ErrInvalidConfiguration, path, err)
	}

	cfg := Config{
		VaultURL:   raw.VaultURL,
		APIVersion: raw.APIVersion,
	}
	for _, d := range []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"max_poll_wait", raw.MaxPollWait, &cfg.MaxPollWait},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s is not a valid duration: %w", ErrInvalidConfiguration, d.field, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
