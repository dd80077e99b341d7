package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
)

// rootOptions are the global flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "parkfinder",
		Short: "parkfinder - on-street parking near a Melbourne destination",
		Long: `parkfinder finds on-street parking bays near a destination in the City of
Melbourne and groups them into walking-distance bands.

It serves:
- A landing page with location search and signup
- A JSON API for nearby bays, distance bands, suggestions and geocoding
- An MCP server so assistants can search for parking
- Command-line tools for one-off searches and result normalization`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file path (optional, env vars always win)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	serve := newServeCommand(opts)
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newVersionCommand(),
		newHealthcheckCommand(),
		newMigrateCommand(opts),
		newNormalizeCommand(),
		newSuggestCommand(opts),
		newNearbyCommand(opts),
		newMCPCommand(opts),
	)
	return root
}

// Execute runs the command tree. It is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file (if any) and the environment, then applies
// the logging flags.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

// stderrLogger is used by commands whose stdout carries data.
func stderrLogger(cfg config.Config) zerolog.Logger {
	return config.NewLoggerTo(cfg.Logging, os.Stderr)
}
