package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soilworks/sbcrun/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sbcrun",
	Short:         "Batch driver for spreadsheet bearing-capacity cases",
	Long: `sbcrun drives a template design spreadsheet over rows of an input
spreadsheet: for each row it writes the footing parameters into mapped
cells, forces a recalculation, reads back the safe bearing capacity, and
records everything in an output spreadsheet plus a saved per-case copy
of the template.

The calculation itself lives entirely in the template's formulas; sbcrun
never reimplements it.

Commands:
  run      Process the whole input table, one engine session per row.
  validate Check files and input rows without touching an engine.
  mapping  Print the parameter-to-cell mapping in effect.
  init     Write a default config file to edit.`,
	Version:       Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./"+config.DefaultFileName+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then command-line flag overrides applied by the caller.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func resolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("SBCRUN_API_KEY")
}

func Execute() error {
	return rootCmd.Execute()
}
