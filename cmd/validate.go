package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soilworks/sbcrun/batch"
	"github.com/soilworks/sbcrun/internal"
)

var (
	validateInput    string
	validateTemplate string
	validateJSON     bool
)

// rowReport is one input row's validation outcome.
type rowReport struct {
	Row     int      `json:"row"` // 1-based sheet row (header is row 1)
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

type validateReport struct {
	Input    string      `json:"input"`
	Template string      `json:"template"`
	Loaded   int         `json:"loaded"`
	Valid    int         `json:"valid"`
	Rows     []rowReport `json:"rows"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check files and input rows without running any case",
	Long: `Dry-run the batch preconditions: the input table and template must
exist, the template must be an OOXML workbook, and each input row is
checked for the required parameters. No calculation engine is contacted
and nothing is written.

Returns exit code 2 when any row would be dropped.

Examples:
  sbcrun validate
  sbcrun validate --input Batch7.xlsx --json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateInput, "input", "", "Input parameter table (overrides config)")
	validateCmd.Flags().StringVar(&validateTemplate, "template", "", "Calculation template workbook (overrides config)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if validateInput != "" {
		cfg.Input = validateInput
	}
	if validateTemplate != "" {
		cfg.Template = validateTemplate
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := os.Stat(cfg.Input); err != nil {
		if os.IsNotExist(err) {
			return &batch.NotFoundError{Kind: "input table", Path: cfg.Input}
		}
		return err
	}
	if _, err := os.Stat(cfg.Template); err != nil {
		if os.IsNotExist(err) {
			return &batch.NotFoundError{Kind: "template", Path: cfg.Template}
		}
		return err
	}
	format, err := internal.DetectWorkbookFormat(cfg.Template)
	if err != nil {
		return err
	}
	if format != internal.WorkbookFormatOOXML {
		return fmt.Errorf("template %s is not an OOXML workbook", cfg.Template)
	}

	table, err := batch.LoadParameterSets(cfg.Input, logger)
	if err != nil {
		return err
	}

	report := validateReport{Input: cfg.Input, Template: cfg.Template, Loaded: len(table.Records)}
	for i, rec := range table.Records {
		r := rowReport{Row: i + 2, Valid: rec.Valid(cfg.Required), Missing: rec.Missing(cfg.Required)}
		if r.Valid {
			report.Valid++
		}
		report.Rows = append(report.Rows, r)
	}

	if validateJSON {
		if err := jsonPrint(report); err != nil {
			return err
		}
	} else {
		fmt.Printf("%d of %d rows valid\n", report.Valid, report.Loaded)
		for _, r := range report.Rows {
			if !r.Valid {
				fmt.Printf("  row %d: missing %s\n", r.Row, strings.Join(r.Missing, ", "))
			}
		}
	}

	if report.Valid < report.Loaded {
		return &ExitError{Code: exitDiagnostics}
	}
	return nil
}
