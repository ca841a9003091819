package ports

import "context"

// Secret is one credential version pulled from a backing store.
type Secret struct {
	Value     string            // the credential itself, e.g. the gateway password
	Version   string            // backend version identifier
	Metadata  map[string]string // backend-specific annotations
	CreatedAt string            // RFC 3339 creation time of this version
}

// SecretManagerAdapter abstracts where gateway credentials live: plain
// environment variables in development, AWS Secrets Manager or Vault in
// production. Implementations authenticate on their own, cache reads with
// a TTL, and survive credential rotation without a restart.
type SecretManagerAdapter interface {
	// GetSecret resolves path in the backend's own addressing scheme,
	// for example "p2c-gateway/production/password" on AWS or
	// "secret/data/p2c-gateway/production" on Vault. Missing secrets,
	// denied access and unreachable backends all surface as errors.
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret writes a new version of the credential at path and
	// returns the backend's identifier for it. Rotation tooling calls
	// this; the request path never does.
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
