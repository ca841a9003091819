package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
)

// DefaultEnvPrefix is the variable prefix the env backend reads from
const DefaultEnvPrefix = "P2C_SECRET"

// envSecretManager implements SecretManagerAdapter on top of plain
// environment variables. It is the default backend: with it, gateway
// credentials come straight from the environment or a .env file, and a
// missing variable simply means "use what the config already carries".
type envSecretManager struct {
	prefix string
	logger *zap.Logger
}

// NewEnvSecretManager creates a secret manager backed by environment
// variables under the given prefix (DefaultEnvPrefix when empty).
func NewEnvSecretManager(prefix string, logger *zap.Logger) ports.SecretManagerAdapter {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &envSecretManager{
		prefix: prefix,
		logger: logger,
	}
}

// variableName maps a secret path to its environment variable:
// "p2c-gateway/test/password" becomes P2C_SECRET_P2C_GATEWAY_TEST_PASSWORD.
func (m *envSecretManager) variableName(path string) string {
	sanitized := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(path)
	return m.prefix + "_" + strings.ToUpper(sanitized)
}

// GetSecret reads a secret from the environment
func (m *envSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	key := m.variableName(path)

	m.logger.Debug("Reading secret from environment",
		zap.String("path", path),
		zap.String("variable", key),
	)

	value, ok := os.LookupEnv(key)
	if !ok {
		return nil, fmt.Errorf("secret %s (variable %s): %w", path, key, ErrNotFound)
	}

	return &ports.Secret{
		Value:   value,
		Version: "env",
	}, nil
}

// PutSecret sets a secret in the process environment. It does not
// survive the process, which is all the sandbox scripts and tests need;
// production writes go through the aws or vault backend.
func (m *envSecretManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	key := m.variableName(path)

	m.logger.Info("Storing secret in process environment",
		zap.String("path", path),
		zap.String("variable", key),
	)

	if err := os.Setenv(key, value); err != nil {
		return "", fmt.Errorf("failed to set %s: %w", key, err)
	}
	return "env", nil
}
