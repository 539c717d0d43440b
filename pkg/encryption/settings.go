// Package encryption holds the document-encryption settings declared by the portal.
// Only the configuration lives here; no encrypt or decrypt routine consumes it yet.
package encryption

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const (
	// Method is the document cipher identifier.
	Method = "AES-256-CBC"

	EnvKey = "DOC_ENC_KEY"

	// fallbackPassphrase is public; any key derived from it is not a secret.
	fallbackPassphrase = "CHANGE_ME_SUPER_SECRET_KEY"
)

var validate = validator.New()

// Settings is the process-wide encryption configuration.
type Settings struct {
	Method string `yaml:"method" validate:"required,eq=AES-256-CBC"`
	Key    string `yaml:"key" validate:"required"`
	// Fallback is set when Key is the publicly known default derived from
	// fallbackPassphrase.
	Fallback bool `yaml:"fallback"`
}

// FallbackKey returns the hex SHA-256 of the placeholder passphrase that is used
// when DOC_ENC_KEY is not provided.
func FallbackKey() string {
	sum := sha256.Sum256([]byte(fallbackPassphrase))
	return hex.EncodeToString(sum[:])
}

// FromEnvironment reads DOC_ENC_KEY, substituting FallbackKey when it is unset
// or falsy.
func FromEnvironment(env environ.Environment) Settings {
	if key, ok := environ.Value(env, EnvKey); ok {
		return Settings{Method: Method, Key: key}
	}
	return Settings{Method: Method, Key: FallbackKey(), Fallback: true}
}

// UsesFallbackKey reports whether the key is the insecure built-in default.
func (s Settings) UsesFallbackKey() bool {
	return s.Fallback
}

// Validate checks the settings. With strict set, the fallback key is rejected.
func (s Settings) Validate(strict bool) error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "encryption settings are invalid")
	}
	if strict && s.Fallback {
		return errors.Errorf("%s must be set: the fallback key is derived from a public placeholder", EnvKey)
	}
	return nil
}

// Redacted returns a copy with the key masked.
func (s Settings) Redacted() Settings {
	if s.Key != "" {
		s.Key = "****"
	}
	return s
}
