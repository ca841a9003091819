package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
)

// VaultConfig tunes the HashiCorp Vault backend. Only the KV secrets
// engine is used; v2 is assumed unless KVVersion says otherwise.
type VaultConfig struct {
	Address string

	// AuthMethod is "token" or "approle".
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	// Namespace applies to Vault Enterprise only.
	Namespace string

	// MountPath of the KV engine, "secret" by default.
	MountPath string
	KVVersion string

	CacheTTL      time.Duration
	EnableCache   bool
	TLSSkipVerify bool
}

// DefaultVaultConfig assumes a KV v2 engine mounted at "secret" and
// token auth.
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		KVVersion:   "v2",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

func (c *VaultConfig) kv2() bool { return c.KVVersion != "v1" }

// dataPath maps a logical secret path onto the engine's read/write path.
// KV v2 interposes "data/" between mount and key.
func (c *VaultConfig) dataPath(path string) string {
	if c.kv2() {
		return fmt.Sprintf("%s/data/%s", c.MountPath, path)
	}
	return fmt.Sprintf("%s/%s", c.MountPath, path)
}

type vaultManager struct {
	client *vault.Client
	cfg    *VaultConfig
	cache  *secretCache
	logger *zap.Logger
}

// NewVaultAdapter builds a SecretManagerAdapter backed by Vault's KV engine.
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	if cfg.TLSSkipVerify {
		if err := vc.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("configure vault tls: %w", err)
		}
	}

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := vaultLogin(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("vault login: %w", err)
	}

	logger.Info("Using Vault for gateway credentials",
		zap.String("address", cfg.Address),
		zap.String("auth", cfg.AuthMethod),
		zap.String("mount", cfg.MountPath),
	)

	return &vaultManager{
		client: client,
		cfg:    cfg,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
		logger: logger,
	}, nil
}

func vaultLogin(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token auth requires a token")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("approle auth requires role_id and secret_id")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return err
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("approle login answered without auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported vault auth method %q", cfg.AuthMethod)
	}
}

func (m *vaultManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if hit := m.cache.get(path); hit != nil {
		return hit, nil
	}

	raw, err := m.client.Logical().ReadWithContext(ctx, m.cfg.dataPath(path))
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("secret %s: %w", path, ErrNotFound)
	}

	payload, version, created, err := m.unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}

	value := credentialValue(payload)
	if value == "" {
		return nil, fmt.Errorf("secret %s holds no value: %w", path, ErrNotFound)
	}

	secret := &ports.Secret{
		Value:     value,
		Version:   version,
		CreatedAt: created,
		Metadata:  map[string]string{},
	}
	for k, v := range payload {
		if s, ok := v.(string); ok && k != "value" {
			secret.Metadata[k] = s
		}
	}

	m.logger.Debug("Fetched secret", zap.String("path", path))
	m.cache.set(path, secret)
	return secret, nil
}

// unwrap peels the KV v2 envelope: payload under "data", version and
// creation time under "metadata". KV v1 stores the payload bare.
func (m *vaultManager) unwrap(raw *vault.Secret) (payload map[string]interface{}, version, created string, err error) {
	if !m.cfg.kv2() {
		return raw.Data, "1", "", nil
	}

	payload, ok := raw.Data["data"].(map[string]interface{})
	if !ok {
		return nil, "", "", fmt.Errorf("unexpected kv2 envelope")
	}
	if meta, ok := raw.Data["metadata"].(map[string]interface{}); ok {
		if v, ok := meta["version"].(json.Number); ok {
			version = v.String()
		}
		if t, ok := meta["created_time"].(string); ok {
			created = t
		}
	}
	return payload, version, created, nil
}

// credentialValue prefers the "value" key and falls back to the first
// string field, so a secret written by hand with one field still resolves.
func credentialValue(payload map[string]interface{}) string {
	if v, ok := payload["value"].(string); ok {
		return v
	}
	for _, v := range payload {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (m *vaultManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	defer m.cache.invalidate(path)

	payload := map[string]interface{}{"value": value}
	for k, v := range metadata {
		payload[k] = v
	}
	body := payload
	if m.cfg.kv2() {
		body = map[string]interface{}{"data": payload}
	}

	resp, err := m.client.Logical().WriteWithContext(ctx, m.cfg.dataPath(path), body)
	if err != nil {
		return "", fmt.Errorf("write secret %s: %w", path, err)
	}

	version := "1"
	if m.cfg.kv2() && resp != nil && resp.Data != nil {
		if v, ok := resp.Data["version"].(json.Number); ok {
			version = v.String()
		}
	}

	m.logger.Info("Stored secret",
		zap.String("path", path),
		zap.String("version", version),
	)
	return version, nil
}
