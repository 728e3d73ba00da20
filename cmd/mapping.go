package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var mappingJSON bool

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Print the parameter-to-cell mapping in effect",
	Long: `Show which template cell each logical parameter is written to, and
which cell the result is read from. The mapping is pure configuration:
it must match the template layout exactly, or writes and reads silently
target the wrong cells. Use this to review it after editing the template
or the config file.

Examples:
  sbcrun mapping
  sbcrun mapping --config site7.json --json`,
	Args: cobra.NoArgs,
	RunE: runMapping,
}

func init() {
	mappingCmd.Flags().BoolVar(&mappingJSON, "json", false, "Output the mapping as JSON")
	rootCmd.AddCommand(mappingCmd)
}

func runMapping(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, _, err := cfg.Mapping(); err != nil {
		return err
	}

	if mappingJSON {
		return jsonPrint(struct {
			Cells        map[string]string `json:"cells"`
			ResultCell   string            `json:"result_cell"`
			ResultColumn string            `json:"result_column"`
			Required     []string          `json:"required"`
		}{cfg.Cells, cfg.ResultCell, cfg.ResultColumn, cfg.Required})
	}

	required := make(map[string]bool, len(cfg.Required))
	for _, name := range cfg.Required {
		required[name] = true
	}

	names := make([]string, 0, len(cfg.Cells))
	for name := range cfg.Cells {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		marker := ""
		if required[name] {
			marker = "  (required)"
		}
		fmt.Printf("%-14s -> %s%s\n", name, cfg.Cells[name], marker)
	}
	fmt.Printf("%-14s <- %s  (%s)\n", "result", cfg.ResultCell, cfg.ResultColumn)
	return nil
}
