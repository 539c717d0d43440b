package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileConfig configures the file provider, typically pointed at a Docker or
// Kubernetes secrets mount.
type FileConfig struct {
	SecretsDir string `yaml:"secrets_dir" toml:"secrets_dir" validate:"required"`
}

// Validate checks that the secrets directory is set and is a directory.
func (f FileConfig) Validate() error {
	if err := validate.Struct(f); err != nil {
		return errors.Wrap(err, "secrets_dir is required for file provider")
	}

	info, err := os.Stat(f.SecretsDir)
	if os.IsNotExist(err) {
		return errors.Errorf("secrets_dir %q does not exist", f.SecretsDir)
	}
	if err != nil {
		return errors.Wrapf(err, "error accessing secrets_dir %q", f.SecretsDir)
	}
	if !info.IsDir() {
		return errors.Errorf("secrets_dir %q is not a directory", f.SecretsDir)
	}
	return nil
}

// CreateClient validates the config and returns the provider.
func (f FileConfig) CreateClient() (*FileProvider, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return NewFileProvider(f.SecretsDir), nil
}

// FileProvider reads one secret per file from a directory. ${file:db_pass}
// resolves to the trimmed content of <secretsDir>/db_pass.
type FileProvider struct {
	secretsDir string
}

// NewFileProvider creates a provider rooted at secretsDir.
func NewFileProvider(secretsDir string) *FileProvider {
	return &FileProvider{secretsDir: secretsDir}
}

// Resolve reads the secret file named key. Keys escaping the secrets directory
// are rejected.
func (f *FileProvider) Resolve(key string) (string, error) {
	if f.secretsDir == "" {
		return "", errors.New("no secrets directory configured")
	}
	if key == "" {
		return "", errors.New("no file specified for file secret")
	}
	if filepath.IsAbs(key) {
		return "", errors.New("invalid secret key: absolute paths not allowed")
	}

	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") {
		return "", errors.New("invalid secret key: path traversal detected")
	}

	absSecretsDir, err := filepath.Abs(f.secretsDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve secrets directory")
	}
	absFilePath, err := filepath.Abs(filepath.Join(f.secretsDir, cleanKey))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve secret file path")
	}
	if !strings.HasPrefix(absFilePath, absSecretsDir+string(filepath.Separator)) {
		return "", errors.New("invalid secret key: outside secrets directory")
	}

	// #nosec G304 -- the path is confined to the secrets directory above
	content, err := os.ReadFile(absFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("secret %q not found", cleanKey)
		}
		return "", errors.Errorf("failed to read secret %q", cleanKey)
	}

	log.Debug().Str("file", absFilePath).Msg("Retrieved secret from file")
	return strings.TrimSpace(string(content)), nil
}

// Name returns the provider name.
func (f *FileProvider) Name() string {
	return "File"
}
