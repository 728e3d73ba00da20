package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/soilworks/sbcrun/batch"
	"github.com/soilworks/sbcrun/config"
	"github.com/soilworks/sbcrun/engine"
)

var (
	runInput       string
	runTemplate    string
	runOutput      string
	runCasesDir    string
	runEngine      string
	runEngineURL   string
	runAPIKey      string
	runCaseTimeout time.Duration
	runJSON        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every input row through the calculation template",
	Long: `Run the batch: load the input table, drop rows missing required
parameters, then for each remaining row populate the template, trigger a
recalculation, read the safe bearing capacity, and save a per-case copy.
Results land in the output workbook, one row per successful case.

Behavior:
  - A single failed case is logged and skipped; the batch continues.
  - The output workbook is written once at the end, even when every
    case failed (header-only in that event).
  - Returns exit code 2 when the batch completed but cases failed.
  - Missing input or template, or an input with no valid rows, aborts
    with no output written.

The engine evaluating the template's formulas is selected with --engine:
"local" runs in-process, "remote" drives a calc service session per case
(see --engine-url; API key via --api-key or SBCRUN_API_KEY).

Examples:
  sbcrun run
  sbcrun run --input Batch7.xlsx --output Batch7_Results.xlsx
  sbcrun run --engine remote --engine-url wss://calc.internal/v1/session
  sbcrun run --case-timeout 2m --json`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Input parameter table (overrides config)")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "Calculation template workbook (overrides config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Output results workbook (overrides config)")
	runCmd.Flags().StringVar(&runCasesDir, "cases-dir", "", "Directory for per-case template copies (overrides config)")
	runCmd.Flags().StringVar(&runEngine, "engine", "", "Calculation engine: local or remote (overrides config)")
	runCmd.Flags().StringVar(&runEngineURL, "engine-url", "", "Remote calc service URL (overrides config)")
	runCmd.Flags().StringVar(&runAPIKey, "api-key", "", "Remote calc service API key (env: SBCRUN_API_KEY)")
	runCmd.Flags().DurationVar(&runCaseTimeout, "case-timeout", 0, "Per-case engine lifecycle timeout, 0 = none (overrides config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output the run summary as JSON")
	rootCmd.AddCommand(runCmd)
}

func applyRunFlags(cfg *config.Config) {
	if runInput != "" {
		cfg.Input = runInput
	}
	if runTemplate != "" {
		cfg.Template = runTemplate
	}
	if runOutput != "" {
		cfg.Output = runOutput
	}
	if runCasesDir != "" {
		cfg.CasesDir = runCasesDir
	}
	if runEngine != "" {
		cfg.Engine.Kind = runEngine
	}
	if runEngineURL != "" {
		cfg.Engine.URL = runEngineURL
	}
	if runCaseTimeout != 0 {
		cfg.Engine.CaseTimeout = config.Duration(runCaseTimeout)
	}
}

func buildEngine(cfg config.Config) (engine.Engine, error) {
	switch cfg.Engine.Kind {
	case "local":
		return engine.NewLocal(), nil
	case "remote":
		return engine.NewRemote(cfg.Engine.URL, resolveAPIKey(runAPIKey)), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q (want local or remote)", cfg.Engine.Kind)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(&cfg)

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	runner, err := batch.New(cfg, eng, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if runJSON {
		if err := jsonPrint(summary); err != nil {
			return err
		}
	} else {
		fmt.Printf("%d/%d cases succeeded (%d of %d input rows valid)\n",
			summary.Succeeded, summary.Valid, summary.Valid, summary.Loaded)
		for _, c := range summary.Cases {
			if c.Error != "" {
				fmt.Printf("  case %03d  FAILED  %s\n", c.Index, c.Error)
				continue
			}
			fmt.Printf("  case %03d  %-12s  %s\n", c.Index, c.Result, c.Artifact)
		}
		fmt.Printf("Results written to %s\n", summary.Output)
	}

	if summary.Failed > 0 {
		return &ExitError{Code: exitDiagnostics}
	}
	return nil
}
