package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerroll/cropwx/internal/app"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "cropwx",
		Short:        "Weather and crop yield ingestion, statistics and read API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultEnv := os.Getenv("ENV_FILE_PATH")
	if defaultEnv == "" {
		defaultEnv = ".env"
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnv, "Path to the .env file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR); overrides the configuration")

	cmd.AddCommand(
		newIngestCommand(opts),
		newRecomputeCommand(opts),
		newServeCommand(opts),
		newExportCommand(opts),
	)
	return cmd
}

// loadConfig loads the configuration and applies the global flags followed by overrides.
func (o *rootOptions) loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	all := make([]func(*config.Config), 0, len(overrides)+1)
	if o.logLevel != "" {
		all = append(all, func(c *config.Config) { c.Cropwx.System.Logging.Level = o.logLevel })
	}
	all = append(all, overrides...)
	return app.LoadConfig(o.envFile, config.EmbeddedConfig(embeddedConfig), all...)
}
