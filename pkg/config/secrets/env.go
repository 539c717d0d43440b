package secrets

import (
	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/rs/zerolog/log"
)

// EnvProvider resolves references against an environment snapshot:
//
//	DB_PASS=${env:PORTAL_DB_PASSWORD}
//	DB_PASS=${PORTAL_DB_PASSWORD}
type EnvProvider struct {
	env environ.Environment
}

// NewEnvProvider creates a provider reading from env.
func NewEnvProvider(env environ.Environment) *EnvProvider {
	return &EnvProvider{env: env}
}

// Resolve returns the variable's value. A missing variable resolves to the empty
// string with a warning, matching the plain-variable behaviour.
func (e *EnvProvider) Resolve(key string) (string, error) {
	var (
		value string
		ok    bool
	)
	if e.env != nil {
		value, ok = e.env.LookupEnv(key)
	}
	if !ok || value == "" {
		log.Warn().
			Str("env_var", key).
			Msg("Referenced environment variable not set or empty - using empty string")
	} else {
		log.Debug().
			Str("env_var", key).
			Msg("Resolved reference from environment variable")
	}
	return value, nil
}

// Name returns the provider name.
func (e *EnvProvider) Name() string {
	return "Environment"
}
