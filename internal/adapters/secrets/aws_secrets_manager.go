package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
)

// AWSConfig tunes the Secrets Manager backend.
type AWSConfig struct {
	Region string

	// Profile selects a shared-config profile for local runs. Empty means
	// the default chain, which is the IAM role when deployed.
	Profile string

	// Endpoint overrides the service URL, for LocalStack.
	Endpoint string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultAWSConfig caches for five minutes, matching how often the bank
// lets a commerce rotate its gateway password at most.
func DefaultAWSConfig(region string) *AWSConfig {
	return &AWSConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type awsManager struct {
	sm     *secretsmanager.Client
	cache  *secretCache
	logger *zap.Logger
}

// NewAWSManager builds a SecretManagerAdapter backed by AWS Secrets Manager.
func NewAWSManager(ctx context.Context, cfg *AWSConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	base, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	sm := secretsmanager.NewFromConfig(base, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("Using AWS Secrets Manager for gateway credentials",
		zap.String("region", cfg.Region),
		zap.Bool("cache", cfg.EnableCache),
	)

	return &awsManager{
		sm:     sm,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
		logger: logger,
	}, nil
}

func (m *awsManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if hit := m.cache.get(path); hit != nil {
		return hit, nil
	}

	out, err := m.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		var missing *smtypes.ResourceNotFoundException
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("secret %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("get secret %s: %w", path, err)
	}

	secret := &ports.Secret{
		Value:    aws.ToString(out.SecretString),
		Version:  aws.ToString(out.VersionId),
		Metadata: map[string]string{},
	}
	if out.CreatedDate != nil {
		secret.CreatedAt = out.CreatedDate.Format(time.RFC3339)
	}
	if out.ARN != nil {
		secret.Metadata["arn"] = *out.ARN
	}

	m.logger.Debug("Fetched secret", zap.String("path", path))
	m.cache.set(path, secret)
	return secret, nil
}

// PutSecret writes a new version, creating the secret on first use. AWS has
// no upsert, so the create path is the fallback of a failed put.
func (m *awsManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	defer m.cache.invalidate(path)

	put, err := m.sm.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err == nil {
		m.logger.Info("Stored new secret version",
			zap.String("path", path),
			zap.String("version", aws.ToString(put.VersionId)),
		)
		return aws.ToString(put.VersionId), nil
	}

	created, err := m.sm.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(path),
		SecretString: aws.String(value),
		Description:  aws.String("P2C gateway credential"),
		Tags:         awsTags(metadata),
	})
	if err != nil {
		return "", fmt.Errorf("create secret %s: %w", path, err)
	}

	m.logger.Info("Created secret",
		zap.String("path", path),
		zap.String("version", aws.ToString(created.VersionId)),
	)
	return aws.ToString(created.VersionId), nil
}

func awsTags(metadata map[string]string) []smtypes.Tag {
	if len(metadata) == 0 {
		return nil
	}
	tags := make([]smtypes.Tag, 0, len(metadata))
	for k, v := range metadata {
		tags = append(tags, smtypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return tags
}
