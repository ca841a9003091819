// Package config loads application configuration from the environment.
//
// Every setting is an environment variable under the P2C_ prefix, with
// double underscores marking nesting: P2C_GATEWAY__TEST__BASE_URL maps to
// Gateway.Test.BaseURL. A .env file in the working directory is picked up
// automatically, which keeps local development and the sandbox scripts
// honest without shipping credentials in the repo.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taquillave/p2c-gateway/internal/adapters/p2c"
	"github.com/taquillave/p2c-gateway/internal/adapters/postgres"
)

const envPrefix = "P2C_"

// Config holds all application configuration
type Config struct {
	// Environment selects which gateway endpoint, credentials, and retry
	// posture the process runs with.
	Environment string `koanf:"environment" validate:"required,oneof=production test"`

	Gateway  GatewayConfig  `koanf:"gateway"`
	Commerce CommerceConfig `koanf:"commerce"`
	Database DatabaseConfig `koanf:"database"`
	Secrets  SecretsConfig  `koanf:"secrets"`
	Logger   LoggerConfig   `koanf:"logger"`
}

// GatewayConfig holds both gateway endpoints. Only the one matching
// Environment is used at runtime; carrying both lets a single .env file
// serve the sandbox and the live cutover.
type GatewayConfig struct {
	Production Endpoint `koanf:"production"`
	Test       Endpoint `koanf:"test"`

	// Verbose logs full request and response bodies at debug level.
	// Never enable against the production gateway.
	Verbose bool `koanf:"verbose"`
}

// Endpoint is one gateway environment: base URL, Basic-auth credentials,
// and the affiliation code the bank assigned for that environment.
type Endpoint struct {
	BaseURL     string `koanf:"base_url" validate:"omitempty,url"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	Affiliation string `koanf:"affiliation"`
}

// CommerceConfig holds the merchant identity used on every purchase
type CommerceConfig struct {
	Phone string `koanf:"phone"` // merchant's P2C mobile number
	Bank  string `koanf:"bank"`  // merchant's bank code
}

// DatabaseConfig holds the payments ledger connection settings
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
	MinConns int32  `koanf:"min_conns"`
}

// SecretsConfig selects where gateway credentials are read from.
// The env backend reads them straight from this config; aws and vault
// fetch them at startup and override whatever the Endpoint carries.
type SecretsConfig struct {
	Backend      string        `koanf:"backend" validate:"required,oneof=env aws vault"`
	Prefix       string        `koanf:"prefix"`
	AWSRegion    string        `koanf:"aws_region"`
	VaultAddress string        `koanf:"vault_address"`
	VaultToken   string        `koanf:"vault_token"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// LoadConfig reads defaults, then the environment, then validates.
// It returns an error rather than logging: callers build the logger
// from the config, so there is nothing to log with yet.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"environment":        string(p2c.EnvironmentTest),
		"database.max_conns": 10,
		"database.min_conns": 2,
		"secrets.backend":    "env",
		"secrets.cache_ttl":  "5m",
		"logger.level":       "info",
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Endpoint returns the gateway endpoint for the configured environment
func (c *Config) Endpoint() Endpoint {
	if c.Environment == string(p2c.EnvironmentProduction) {
		return c.Gateway.Production
	}
	return c.Gateway.Test
}

// Profile builds the gateway profile for the configured environment:
// the DefaultProfile retry posture plus this config's endpoint,
// credentials, and commerce identity. The profile is not validated here.
// Credentials may still be overlaid by a secrets backend, and the client
// constructor validates what it is finally handed.
func (c *Config) Profile() p2c.Profile {
	endpoint := c.Endpoint()

	profile := p2c.DefaultProfile(p2c.Environment(c.Environment))
	profile.BaseURL = endpoint.BaseURL
	profile.Username = endpoint.Username
	profile.Password = endpoint.Password
	profile.Affiliation = endpoint.Affiliation
	profile.CommercePhone = c.Commerce.Phone
	profile.CommerceBank = c.Commerce.Bank
	profile.Verbose = c.Gateway.Verbose

	return profile
}

// PostgresConfig derives the ledger pool configuration
func (c *Config) PostgresConfig() *postgres.Config {
	cfg := postgres.DefaultConfig(c.Database.URL)
	if c.Database.MaxConns > 0 {
		cfg.MaxConns = c.Database.MaxConns
	}
	if c.Database.MinConns > 0 {
		cfg.MinConns = c.Database.MinConns
	}
	return cfg
}

// NewLogger builds a zap logger for the configured environment:
// structured JSON in production, console output everywhere else.
// Gateway.Verbose forces debug regardless of the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Logger.Level != "" {
		if err := level.Set(c.Logger.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Logger.Level, err)
		}
	}
	if c.Gateway.Verbose {
		level = zapcore.DebugLevel
	}

	var zapCfg zap.Config
	if c.Environment == string(p2c.EnvironmentProduction) {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
