// Package config assembles the portal's runtime configuration from an environment
// snapshot: the database connection descriptor, the document-encryption settings
// and the application settings. The result is built once at startup and passed
// explicitly to every consumer.
package config

import (
	"strconv"

	"github.com/ejustice-portal/bootstrap/internal/snapshot"
	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/ejustice-portal/bootstrap/pkg/config/secrets"
	"github.com/ejustice-portal/bootstrap/pkg/database"
	"github.com/ejustice-portal/bootstrap/pkg/encryption"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	EnvAppEnv   = "APP_ENV"
	EnvAppDebug = "APP_DEBUG"

	DefaultAppEnv = "development"
	// ProductionEnv is the APP_ENV value under which the fallback encryption key
	// is refused.
	ProductionEnv = "production"
)

// variables lists every environment variable the configuration reads. Only these
// are subject to secret reference resolution.
var variables = []string{
	database.EnvDatabaseURL,
	database.EnvHost,
	database.EnvName,
	database.EnvUser,
	database.EnvPassword,
	database.EnvPort,
	encryption.EnvKey,
	EnvAppEnv,
	EnvAppDebug,
}

type (
	// Config is the resolved portal configuration.
	Config struct {
		Database   database.ConnectionDescriptor `yaml:"database"`
		Encryption encryption.Settings           `yaml:"encryption"`
		App        AppSettings                   `yaml:"app"`
	}

	// AppSettings holds the application environment name and debug flag.
	AppSettings struct {
		Env   string `yaml:"env"`
		Debug bool   `yaml:"debug"`
	}
)

// Validatable is implemented by every configuration section.
type Validatable interface {
	Validate() error
}

// ClientFactory is a configuration section that can build a client, e.g.
// secrets.VaultConfig implements ClientFactory[*api.Client].
type ClientFactory[T any] interface {
	Validatable
	CreateClient() (T, error)
}

// IsProduction reports whether APP_ENV is "production".
func (a AppSettings) IsProduction() bool {
	return a.Env == ProductionEnv
}

// Load resolves the configuration from env. Values of the form ${prefix:key} are
// first resolved through registry; a nil registry only knows the env prefix.
// A reference that cannot be resolved is an error, while missing or malformed
// plain values fall back to their defaults.
func Load(env environ.Environment, registry *secrets.Registry) (*Config, error) {
	if registry == nil {
		registry = secrets.NewRegistry(env)
	}

	resolved, err := resolveReferences(env, registry)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database:   database.Resolve(resolved),
		Encryption: encryption.FromEnvironment(resolved),
		App:        appSettings(resolved),
	}

	if cfg.Encryption.UsesFallbackKey() {
		log.Warn().
			Str("env_var", encryption.EnvKey).
			Msg("Document encryption key not set - using the insecure built-in fallback key")
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Stringer("database", cfg.Database).
		Str("source", string(cfg.Database.Source)).
		Str("app_env", cfg.App.Env).
		Bool("debug", cfg.App.Debug).
		Msg("Configuration loaded")
	return cfg, nil
}

// Validate checks the encryption settings, refusing the fallback key when the
// application runs in production.
func (c *Config) Validate() error {
	if err := c.Encryption.Validate(c.App.IsProduction()); err != nil {
		return errors.Wrap(err, "configuration is invalid")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	return snapshot.MustCopy(c)
}

// Redacted returns a copy safe for display: the database password and the
// encryption key are masked.
func (c *Config) Redacted() *Config {
	out := c.Clone()
	out.Database = out.Database.Redacted()
	out.Encryption = out.Encryption.Redacted()
	return out
}

func appSettings(env environ.Environment) AppSettings {
	app := AppSettings{Env: DefaultAppEnv}
	if value, ok := environ.Value(env, EnvAppEnv); ok {
		app.Env = value
	}
	if value, ok := environ.Value(env, EnvAppDebug); ok {
		debug, err := strconv.ParseBool(value)
		if err != nil {
			log.Debug().Str("value", value).Msg("APP_DEBUG is not a boolean, debug disabled")
		}
		app.Debug = debug
	}
	return app
}

// resolveReferences returns a snapshot of the configuration variables with every
// whole-value secret reference replaced by its resolved value.
func resolveReferences(env environ.Environment, registry *secrets.Registry) (environ.Snapshot, error) {
	values := make(map[string]string, len(variables))
	for _, key := range variables {
		value, ok := env.LookupEnv(key)
		if !ok {
			continue
		}
		expanded, err := registry.Expand(value)
		if err != nil {
			return environ.Snapshot{}, errors.Wrapf(err, "failed to resolve %s", key)
		}
		values[key] = expanded
	}
	return environ.New(values), nil
}
