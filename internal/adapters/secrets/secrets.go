// Package secrets provides the backends gateway credentials are read
// from: plain environment variables for development, AWS Secrets Manager
// or HashiCorp Vault for deployments where the Basic-auth password must
// not live in config.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/p2c"
	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
)

// Supported backends
const (
	BackendEnv   = "env"
	BackendAWS   = "aws"
	BackendVault = "vault"
)

// Config selects and configures a credentials backend
type Config struct {
	Backend string // env, aws, or vault

	// Prefix is the environment variable prefix for the env backend
	// (DefaultEnvPrefix when empty). The remote backends use fixed
	// "p2c-gateway/{environment}/{name}" paths instead.
	Prefix string

	AWSRegion    string
	VaultAddress string
	VaultToken   string
	CacheTTL     time.Duration
}

// NewFromConfig builds the configured backend
func NewFromConfig(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case BackendEnv, "":
		return NewEnvSecretManager(cfg.Prefix, logger), nil

	case BackendAWS:
		awsCfg := DefaultAWSConfig(cfg.AWSRegion)
		if cfg.CacheTTL > 0 {
			awsCfg.CacheTTL = cfg.CacheTTL
		}
		return NewAWSManager(ctx, awsCfg, logger)

	case BackendVault:
		vaultCfg := DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.Token = cfg.VaultToken
		if cfg.CacheTTL > 0 {
			vaultCfg.CacheTTL = cfg.CacheTTL
		}
		return NewVaultAdapter(ctx, vaultCfg, logger)

	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", cfg.Backend)
	}
}

// LoadGatewayCredentials overlays the profile's Basic-auth credentials
// and affiliation with values from the backend. A credential the backend
// does not hold keeps whatever the profile already carries, so the env
// backend degrades to plain configuration. A backend failure is an
// error: starting with possibly stale production credentials is worse
// than not starting.
func LoadGatewayCredentials(ctx context.Context, sm ports.SecretManagerAdapter, profile *p2c.Profile) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"username", &profile.Username},
		{"password", &profile.Password},
		{"affiliation", &profile.Affiliation},
	}

	for _, f := range fields {
		path := fmt.Sprintf("p2c-gateway/%s/%s", profile.Environment, f.name)

		secret, err := sm.GetSecret(ctx, path)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load gateway %s: %w", f.name, err)
		}
		*f.dst = secret.Value
	}

	return profile.Validate()
}
