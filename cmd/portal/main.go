package main

import (
	"io"
	"os"

	"github.com/ejustice-portal/bootstrap/pkg/database"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// Version information set during build
var (
	version = "dev"
)

const (
	flagDebug         = "debug"
	flagConfig        = "config"
	flagEnvFile       = "env-file"
	flagLogFile       = "log-file"
	flagStrictSecrets = "strict-secrets"
	flagAddr          = "addr"
	flagQuery         = "query"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		var connErr *database.ConnectionError
		if errors.As(err, &connErr) {
			log.Fatal().Msgf("Database connection failed: %s", connErr.Err)
		}
		log.Fatal().Err(err).Msg("Fatal error")
	}
}

func newApp(out io.Writer) *cli.App {
	var logCloser io.Closer

	return &cli.App{
		Name:    "portal",
		Usage:   "e-justice portal bootstrap",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Usage:   "Path to the bootstrap file (YAML or TOML) declaring secret providers and the server",
				EnvVars: []string{"PORTAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    flagEnvFile,
				Value:   ".env",
				Usage:   "Dotenv file filling variables absent from the process environment",
				EnvVars: []string{"PORTAL_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    flagLogFile,
				Usage:   "Also write JSON logs to this rotated file",
				EnvVars: []string{"LOG_FILE"},
			},
			&cli.BoolFlag{
				Name:  flagStrictSecrets,
				Usage: "Refuse the built-in fallback encryption key in every environment",
			},
		},
		Before: func(c *cli.Context) error {
			logCloser = setupLogging(c)
			return nil
		},
		After: func(c *cli.Context) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			checkCommand(),
			configCommand(),
			serveCommand(),
			versionCommand(),
		},
	}
}
