// Package secrets pulls service credentials out of Vault into the process
// environment before configuration is loaded.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/pkg/retry"
)

// CredentialKeys are the environment variables a Vault secret may populate.
// Anything else stored at the path is ignored.
var CredentialKeys = []string{"DB_USER", "DB_PASSWORD", "REDIS_PASSWORD"}

// VaultConfig describes where the service credentials live in Vault
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
	Retry     retry.Config
}

// VaultResult lists the credential keys that were exported or left alone
type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  []string
	Skipped []string
}

// LoadVaultConfigFromEnv reads VAULT_* variables. pathOverride wins over VAULT_PATH.
func LoadVaultConfigFromEnv(pathOverride string) VaultConfig {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 3

	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     envOr("VAULT_MOUNT", "secret"),
		Path:      pathOverride,
		KVVersion: envInt("VAULT_KV_VERSION", 2),
		Timeout:   time.Duration(envInt("VAULT_TIMEOUT_MS", 5000)) * time.Millisecond,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Retry:     retryCfg,
	}
	if cfg.Path == "" {
		cfg.Path = os.Getenv("VAULT_PATH")
	}
	return cfg
}

// VaultSource reads one KV secret
type VaultSource struct {
	cfg    VaultConfig
	client *http.Client
}

// NewVaultSource validates cfg and returns a source for its secret path
func NewVaultSource(cfg VaultConfig) (*VaultSource, error) {
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return nil, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}
	if strings.Trim(cfg.Mount, "/") == "" {
		return nil, errors.New("vault mount must be set")
	}
	return &VaultSource{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// URL returns the read endpoint for the configured KV engine version
func (s *VaultSource) URL() (string, error) {
	segments := []string{"v1", strings.Trim(s.cfg.Mount, "/")}
	if s.cfg.KVVersion != 1 {
		segments = append(segments, "data")
	}
	segments = append(segments, strings.Trim(s.cfg.Path, "/"))
	return url.JoinPath(strings.TrimRight(s.cfg.Addr, "/"), segments...)
}

// Credentials fetches the secret and returns the credential keys it holds,
// with every value rendered as a string. Failed reads are retried.
func (s *VaultSource) Credentials(ctx context.Context) (map[string]string, error) {
	endpoint, err := s.URL()
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	err = retry.Do(ctx, s.cfg.Retry, "vault read", func(ctx context.Context) error {
		var readErr error
		data, readErr = s.read(ctx, endpoint)
		return readErr
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Str("path", s.cfg.Path).Msg("Vault read failed, retrying")
	})
	if err != nil {
		return nil, err
	}

	creds := make(map[string]string, len(CredentialKeys))
	for _, key := range CredentialKeys {
		if value, ok := data[key]; ok {
			creds[key] = stringifyVaultValue(value)
		}
	}
	return creds, nil
}

func (s *VaultSource) read(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", s.cfg.Token)
	if s.cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", s.cfg.Namespace)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("vault returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	// KV v2 nests the secret one level deeper than v1.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode vault response: %w", err)
	}
	if s.cfg.KVVersion != 1 {
		var inner struct {
			Data json.RawMessage `json:"data"`
		}
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &inner); err != nil {
				return nil, fmt.Errorf("decode vault response: %w", err)
			}
		}
		envelope.Data = inner.Data
	}

	var secret map[string]interface{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &secret); err != nil {
			return nil, fmt.Errorf("decode vault secret: %w", err)
		}
	}
	if secret == nil {
		return nil, fmt.Errorf("vault response missing data for KV v%d", s.kvVersion())
	}
	return secret, nil
}

func (s *VaultSource) kvVersion() int {
	if s.cfg.KVVersion == 1 {
		return 1
	}
	return 2
}

// ApplyVaultSecrets exports the credential keys found at cfg.Path into the
// environment. A disabled config is a no-op.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	result := VaultResult{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}

	source, err := NewVaultSource(cfg)
	if err != nil {
		return result, err
	}
	creds, err := source.Credentials(ctx)
	if err != nil {
		return result, err
	}

	for _, key := range CredentialKeys {
		value, ok := creds[key]
		if !ok {
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return result, err
		}
		result.Loaded = append(result.Loaded, key)
	}

	log.Info().
		Str("path", cfg.Path).
		Strs("loaded", result.Loaded).
		Strs("skipped", result.Skipped).
		Msg("Applied Vault credentials")
	return result, nil
}

func stringifyVaultValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
