package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/config"
)

const appName = "blotter"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile   string
	logLevel  string
	logFormat string
	verbosity string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Incident report classifier",
		Long: `Blotter extracts the labelled sections of police incident reports,
predicts each report's crime category with a fitted model and assigns
it a severity tier from 1 to 5.

Without a subcommand it runs in the mode set by BLOTTER_MODE: "stream"
watches BLOTTER_SOURCE_PATH, "query" classifies what is there and exits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&g)
			if err != nil {
				return err
			}
			if cfg.Mode == "query" {
				return runQuery(cmd, cfg, queryFlags{})
			}
			return runWatch(cmd, cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.envFile, "env-file", "", "Load variables from this .env file (default: ./.env when present)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format (auto, json, text)")
	flags.StringVar(&g.verbosity, "verbosity", "", "Prediction detail (minimal, standard, full)")

	cmd.AddCommand(
		classifyCmd(&g),
		watchCmd(&g),
		extractCmd(),
		severityCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, config.Version)
		},
	}
}

// loadConfig reads the .env file and environment, then applies flag
// overrides. Flags win over the environment.
func loadConfig(g *globalFlags) (config.Config, error) {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return config.Config{}, err
	}
	cfg := config.Load()
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if g.verbosity != "" {
		cfg.Engine.Verbosity = g.verbosity
	}
	return cfg, nil
}
