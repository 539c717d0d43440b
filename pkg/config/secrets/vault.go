package secrets

import (
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds the connection settings for HashiCorp Vault.
type VaultConfig struct {
	Address   string `yaml:"address" toml:"address" validate:"required,url"`
	Token     string `yaml:"token" toml:"token" validate:"required"`
	Path      string `yaml:"path" toml:"path" validate:"required"`
	Namespace string `yaml:"namespace,omitempty" toml:"namespace"`
}

// Validate checks that address, token and path are set.
func (v VaultConfig) Validate() error {
	if err := validate.Struct(v); err != nil {
		return errors.Wrap(err, "invalid Vault configuration")
	}
	return nil
}

// CreateClient creates an authenticated Vault API client.
func (v VaultConfig) CreateClient() (*api.Client, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	config := api.DefaultConfig()
	config.Address = v.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}
	client.SetToken(v.Token)
	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}
	return client, nil
}

// VaultProvider reads keys from a single Vault secret path, KV v1 or KV v2:
//
//	DB_PASS=${vault:DB_PASS}
type VaultProvider struct {
	logical *api.Logical
	path    string
}

// NewVaultProvider creates a provider reading from path with client.
func NewVaultProvider(client *api.Client, path string) *VaultProvider {
	return &VaultProvider{
		logical: client.Logical(),
		path:    path,
	}
}

// Resolve reads the secret at the configured path and returns the value of key.
func (v *VaultProvider) Resolve(key string) (string, error) {
	secret, err := v.logical.Read(v.path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", v.path)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Errorf("no secret found at Vault path %q", v.path)
	}

	data := secret.Data
	// KV v2 nests the key/value pairs under "data".
	if nested, present := secret.Data["data"]; present && nested != nil {
		dataMap, ok := nested.(map[string]any)
		if !ok {
			return "", errors.New("unexpected data format in KV v2 secret")
		}
		data = dataMap
	}

	value, ok := data[key].(string)
	if !ok {
		return "", errors.Errorf("secret %q not found in Vault at path %q", key, v.path)
	}
	log.Debug().
		Str("secret_name", key).
		Str("vault_path", v.path).
		Msg("Retrieved secret from Vault")
	return value, nil
}

// Name returns the provider name.
func (v *VaultProvider) Name() string {
	return "Vault"
}
