package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/config"
	"polaris-hq/polaris/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "polaris",
	Short: "Polaris - declarative constraint engine",
	Long: `Polaris evaluates declarative constraint policies against structured
documents. Every evaluation has one of three outcomes:

  satisfied      the document conforms to the policy
  contradiction  the document violates the policy
  residual       the document is incomplete; the residual names the
                 constraints its missing fields must still satisfy

Policies are YAML files of tagged-tuple expressions and support
comparison, membership, and pattern operators, boolean connectives,
and quantifiers over document sequences.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadRuntime loads the configuration file if present and builds the
// logger. A missing config file falls back to defaults so the CLI works
// without any setup.
func loadRuntime() (*config.Config, *slog.Logger, error) {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(cfgFile); err == nil {
		loaded, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	logCfg := logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
