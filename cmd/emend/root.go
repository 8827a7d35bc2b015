package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/emend/internal/config"
	"github.com/platinummonkey/emend/internal/logger"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "emend",
	Short: "Detect and correct OCR errors in scanned book text",
	Long: `emend cleans the noisy text that OCR produces from scanned
scholarly books.

The pipeline runs up to three stages:
  1. Rejoin words split across line wraps ("beau-" / "tiful")
  2. Flag words that look like recognition errors
  3. Optionally re-recognize flagged lines from the page image,
     escalating from local neural OCR through Tesseract to remote
     vision models

An adaptive dictionary combines a base word list, a scholarly
whitelist, morphological analysis, and a learned layer that
accumulates document vocabulary across runs, so rare but legitimate
terms stop being flagged over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.emend.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console or json)")
}

// loadConfig resolves the effective configuration: defaults, then the
// optional config file, then EMEND_* environment variables, then any
// flags that were explicitly set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flag := cmd.Flag("log-level"); flag != nil && flag.Changed {
		cfg.LogLevel = flag.Value.String()
	}
	if flag := cmd.Flag("log-format"); flag != nil && flag.Changed {
		cfg.LogFormat = flag.Value.String()
	}

	// Flag overrides bypass Load's validation, so check again
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
