package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// SecretGetter is the part of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NeedsSecrets reports whether any backend key comes from Secrets Manager.
func (c *Config) NeedsSecrets() bool {
	for _, b := range c.Backends {
		if b.SubscriptionKey == "" && b.SubscriptionKeySecret != "" {
			return true
		}
	}
	return false
}

// NewSecretsClient creates a Secrets Manager client for the configured
// region and profile.
func NewSecretsClient(ctx context.Context, s Secrets) (*secretsmanager.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// ResolveSecrets fills in subscription keys named by subscriptionKeySecret.
// A key given inline wins over the secret.
func (c *Config) ResolveSecrets(ctx context.Context, client SecretGetter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.SubscriptionKey != "" || b.SubscriptionKeySecret == "" {
			continue
		}
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(b.SubscriptionKeySecret),
		})
		if err != nil {
			return fmt.Errorf("backend %q: fetch secret %s: %w", b.Name, b.SubscriptionKeySecret, err)
		}
		if out.SecretString == nil || *out.SecretString == "" {
			return fmt.Errorf("backend %q: secret %s has no string value", b.Name, b.SubscriptionKeySecret)
		}
		b.SubscriptionKey = *out.SecretString
		logger.DebugContext(ctx, "loaded secret", "backend", b.Name, "secret_id", b.SubscriptionKeySecret)
	}
	return nil
}
