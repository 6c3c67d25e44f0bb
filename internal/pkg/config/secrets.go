// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretSource returns the credentials overlaid onto a loaded Config
type SecretSource interface {
	Secrets(ctx context.Context) (map[string]string, error)
}

var (
	_ SecretSource = (*SecretsManagerSource)(nil)
	_ SecretSource = EnvSource(nil)
)

// Secret keys read from a SecretSource
const (
	SecretDatabasePassword = "DB_PASSWORD"
	SecretJWT              = "JWT_SECRET"
	SecretRedisPassword    = "REDIS_PASSWORD"
	SecretS3AccessKey      = "AWS_SECRET_ACCESS_KEY"
)

// secretBindings maps each key to the fields it overrides. The redis
// password feeds both the cache client and the asynq broker.
var secretBindings = map[string]func(*Config, string){
	SecretDatabasePassword: func(c *Config, v string) { c.Database.Password = v },
	SecretJWT:              func(c *Config, v string) { c.Security.JWTSecret = v },
	SecretRedisPassword: func(c *Config, v string) {
		c.Redis.Password = v
		c.Asynq.RedisPassword = v
	},
	SecretS3AccessKey: func(c *Config, v string) { c.AWS.SecretAccessKey = v },
}

// ApplySecrets overlays every known key present in src. Empty or missing
// values keep what the environment provided. It returns the keys applied.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) ([]string, error) {
	secrets, err := src.Secrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	applied := make([]string, 0, len(secretBindings))
	for key, set := range secretBindings {
		if v := secrets[key]; v != "" {
			set(cfg, v)
			applied = append(applied, key)
		}
	}
	return applied, nil
}

// SecretsManagerSource reads one JSON object secret from AWS Secrets Manager
type SecretsManagerSource struct {
	client    *secretsmanager.Client
	secretID  string
	ttl       time.Duration
	logger    *slog.Logger
	mu        sync.Mutex
	values    map[string]string
	fetchedAt time.Time
}

// NewSecretsManagerSource creates a source for secretID. The parsed value is
// reused for five minutes.
func NewSecretsManagerSource(ctx context.Context, region, secretID string, logger *slog.Logger) (*SecretsManagerSource, error) {
	if secretID == "" {
		return nil, errors.New("secret id is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SecretsManagerSource{
		client:   secretsmanager.NewFromConfig(awsCfg),
		secretID: secretID,
		ttl:      5 * time.Minute,
		logger:   logger.With(slog.String("component", "secrets")),
	}, nil
}

// Secrets returns the current secret value
func (s *SecretsManagerSource) Secrets(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values != nil && time.Since(s.fetchedAt) < s.ttl {
		return s.values, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(s.secretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", s.secretID, err)
	}

	values, err := parseSecret(aws.ToString(out.SecretString))
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", s.secretID, err)
	}

	s.values = values
	s.fetchedAt = time.Now()
	s.logger.InfoContext(ctx, "secrets loaded",
		slog.String("secret_id", s.secretID),
		slog.Int("keys", len(values)))

	return values, nil
}

// Invalidate drops the cached value so the next call refetches
func (s *SecretsManagerSource) Invalidate() {
	s.mu.Lock()
	s.values = nil
	s.mu.Unlock()
}

func parseSecret(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, errors.New("secret has no string value")
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("secret is not a JSON object of strings: %w", err)
	}
	return values, nil
}

// EnvSource reads the named keys from the process environment. A nil
// EnvSource reads every known secret key.
type EnvSource []string

// Secrets returns the set variables
func (e EnvSource) Secrets(context.Context) (map[string]string, error) {
	keys := []string(e)
	if keys == nil {
		for k := range secretBindings {
			keys = append(keys, k)
		}
	}

	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}
	return values, nil
}
