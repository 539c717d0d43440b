package main

import (
	"io"

	"github.com/ejustice-portal/bootstrap/internal/logging"
	"github.com/ejustice-portal/bootstrap/pkg/config"
	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/ejustice-portal/bootstrap/pkg/config/secrets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// bootstrap is everything a command needs, resolved once per invocation.
type bootstrap struct {
	file     *config.File
	registry *secrets.Registry
	config   *config.Config
}

func setupLogging(c *cli.Context) io.Closer {
	return logging.Setup(logging.Options{
		Debug: c.Bool(flagDebug),
		File:  c.String(flagLogFile),
		Out:   c.App.ErrWriter,
	})
}

// loadBootstrap captures the environment, registers the secret providers declared
// in the bootstrap file and resolves the configuration.
func loadBootstrap(c *cli.Context) (*bootstrap, error) {
	env, err := environ.FromOSWithDotEnv(c.String(flagEnvFile))
	if err != nil {
		return nil, err
	}

	b := &bootstrap{registry: secrets.NewRegistry(env)}
	if path := c.String(flagConfig); path != "" {
		if b.file, err = config.ReadFile(path); err != nil {
			return nil, err
		}
		if err = config.RegisterProviders(b.file, b.registry); err != nil {
			return nil, errors.Wrap(err, "failed to register secret providers")
		}
	}

	if b.config, err = config.Load(env, b.registry); err != nil {
		return nil, err
	}
	if c.Bool(flagStrictSecrets) {
		if err = b.config.Encryption.Validate(true); err != nil {
			return nil, err
		}
	}
	if b.config.App.Debug && zerolog.GlobalLevel() > zerolog.DebugLevel {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("Debug logging enabled by APP_DEBUG")
	}
	return b, nil
}
