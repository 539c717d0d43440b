package main

import (
	"fmt"

	"github.com/ejustice-portal/bootstrap/internal/metrics"
	"github.com/ejustice-portal/bootstrap/pkg/config"
	"github.com/ejustice-portal/bootstrap/pkg/database"
	"github.com/ejustice-portal/bootstrap/pkg/server"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Resolve the configuration, open the database handle and ping it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagQuery,
				Usage: "Run this query after connecting and print the rows",
			},
		},
		Action: func(c *cli.Context) error {
			b, err := loadBootstrap(c)
			if err != nil {
				return err
			}

			handle, err := database.Open(c.Context, b.config.Database)
			if err != nil {
				return err
			}
			defer func() {
				if err := handle.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close database handle")
				}
			}()

			if query := c.String(flagQuery); query != "" {
				records, err := handle.QueryRecords(c.Context, query)
				if err != nil {
					return err
				}
				return yaml.NewEncoder(c.App.Writer).Encode(records)
			}

			_, err = fmt.Fprintf(c.App.Writer, "ok %s\n", b.config.Database)
			return err
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the resolved configuration with secrets masked",
		Action: func(c *cli.Context) error {
			b, err := loadBootstrap(c)
			if err != nil {
				return err
			}
			encoder := yaml.NewEncoder(c.App.Writer)
			encoder.SetIndent(2)
			if err = encoder.Encode(b.config.Redacted()); err != nil {
				return errors.Wrap(err, "failed to encode configuration")
			}
			return encoder.Close()
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve /healthz and /metrics until SIGINT or SIGTERM",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagAddr,
				Value:   ":8080",
				Usage:   "Listen address, overrides the bootstrap file",
				EnvVars: []string{"PORTAL_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			b, err := loadBootstrap(c)
			if err != nil {
				return err
			}

			serverCfg, err := serverConfig(c, b)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			handle, err := database.Open(c.Context, b.config.Database, database.WithObserver(metrics.NewConnections(reg)))
			if err != nil {
				return err
			}

			srv, err := server.New(serverCfg, handle, reg)
			if err != nil {
				_ = handle.Close()
				return err
			}
			srv.AddShutdownHook(handle.Close)
			return srv.StartAndWaitForSignal()
		},
	}
}

// serverConfig reads the "server" section of the bootstrap file when present.
// An explicitly set --addr or PORTAL_ADDR wins over the file.
func serverConfig(c *cli.Context, b *bootstrap) (server.Config, error) {
	cfg := server.Config{Address: c.String(flagAddr), Debug: b.config.App.Debug}
	if !b.file.Has(config.SectionServer) {
		return cfg, nil
	}

	fromFile, err := config.Get[server.Config](b.file, config.SectionServer, b.registry)
	if err != nil {
		return server.Config{}, err
	}
	if c.IsSet(flagAddr) {
		fromFile.Address = cfg.Address
	}
	fromFile.Debug = fromFile.Debug || cfg.Debug
	return *fromFile, nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, version)
			return err
		},
	}
}
