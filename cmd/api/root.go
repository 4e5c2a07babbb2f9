package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/config"
	"github.com/bryanwahyu/osint-cafe/internal/logging"
)

// cli carries the flag values and the viper instance every subcommand loads from.
type cli struct {
	cfgFile string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "osint-cafe",
		Short: "Dating-safety analysis API with multi-provider fallback",
		Long: `osint-cafe checks dating profiles, conversations, images, links and
identities against a chain of external providers per capability. When every
provider in a chain fails it still answers, with a conservative default that
is flagged as degraded.

Running 'osint-cafe' without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "",
		"config file (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "json", "log format (json, console)")
	_ = c.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(c.newServeCmd(), c.newStatusCmd(), c.newConfigCmd(), c.newReportsCmd())
	return root
}

// load reads and validates the configuration.
func (c *cli) load() (*config.Config, error) {
	path := c.cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	loader := config.NewLoaderWithViper(c.v)
	if path != "" {
		loader = loader.WithConfigFile(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) loadWithLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
