package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig holds the settings for AWS Secrets Manager.
type AWSConfig struct {
	Region          string `yaml:"region" toml:"region" validate:"required"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" toml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" toml:"secret_access_key" validate:"required_with=AccessKeyID"`
	SecretName      string `yaml:"secret_name" toml:"secret_name" validate:"required"`
	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint" validate:"omitempty,url"`
}

// Validate checks region and secret name. Static credentials are optional but
// must be given as a pair; without them the default credential chain is used.
func (a AWSConfig) Validate() error {
	if err := validate.Struct(a); err != nil {
		return errors.Wrap(err, "invalid AWS Secrets Manager configuration")
	}
	return nil
}

// CreateClient creates a Secrets Manager client.
func (a AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(a.Region),
	}
	if a.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(a.Endpoint))
	}
	if a.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// secretValueGetter is the part of the Secrets Manager client the provider uses.
type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider reads keys from one Secrets Manager secret. A JSON object secret
// is indexed by key; a plain string secret is returned whole regardless of key.
//
//	DB_PASS=${aws:DB_PASS}
type AWSProvider struct {
	client     secretValueGetter
	secretName string
}

// NewAWSProvider creates a provider for secretName.
func NewAWSProvider(client *secretsmanager.Client, secretName string) *AWSProvider {
	return &AWSProvider{client: client, secretName: secretName}
}

// Resolve fetches the secret and extracts key.
func (a *AWSProvider) Resolve(key string) (string, error) {
	result, err := a.client.GetSecretValue(context.Background(), &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from AWS Secrets Manager: %q", a.secretName)
	}
	if result.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", a.secretName)
	}

	secretString := *result.SecretString
	var secretData map[string]any
	if err := json.Unmarshal([]byte(secretString), &secretData); err == nil {
		value, ok := secretData[key].(string)
		if !ok {
			return "", errors.Errorf("key %q not found in AWS secret %q", key, a.secretName)
		}
		log.Debug().
			Str("secret_name", a.secretName).
			Str("key", key).
			Msg("Retrieved secret from AWS Secrets Manager")
		return value, nil
	}

	log.Debug().
		Str("secret_name", a.secretName).
		Msg("Retrieved plain text secret from AWS Secrets Manager")
	return secretString, nil
}

// Name returns the provider name.
func (a *AWSProvider) Name() string {
	return "AWS Secrets Manager"
}
