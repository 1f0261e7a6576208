// Package cliconfig holds the flags shared by the command line tools and
// turns them into a keydb.Config.
package cliconfig

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Gylaii/keydb-client-lib/pkg/keydb"
)

// StoreFlags returns the connection flags every tool accepts. Each flag also
// reads the matching KEYDB_* environment variable.
func StoreFlags() []cli.Flag {
	defaults := keydb.DefaultConfig()

	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Store hostname",
			EnvVars: []string{"KEYDB_HOST"},
			Value:   defaults.Store.Host,
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Store port",
			EnvVars: []string{"KEYDB_PORT"},
			Value:   defaults.Store.Port,
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Store password",
			EnvVars: []string{"KEYDB_PASSWORD"},
		},
		&cli.BoolFlag{
			Name:    "tls",
			Usage:   "Enable TLS",
			EnvVars: []string{"KEYDB_USE_TLS"},
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"ns"},
			Usage:   "Prefix for channel and queue names",
			EnvVars: []string{"KEYDB_NAMESPACE"},
		},
	}
}

// Load reads the KEYDB_* environment, applies the store flags on top and
// validates the result. clientPrefix names the connection (CLIENT SETNAME).
func Load(c *cli.Context, clientPrefix string) (keydb.Config, error) {
	cfg, err := keydb.ConfigFromEnv()
	if err != nil {
		return keydb.Config{}, err
	}

	cfg.Store.Host = c.String("host")
	cfg.Store.Port = c.Int("port")
	cfg.Store.Password = c.String("password")
	cfg.Store.UseTLS = c.Bool("tls")
	cfg.Namespace = c.String("namespace")
	if cfg.Store.ClientName == "" && clientPrefix != "" {
		cfg.Store.ClientName = keydb.GenerateClientName(clientPrefix)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return keydb.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
