package cmd

import (
	"encoding/json"
	"os"
)

// exitDiagnostics is returned when the command completed but reported
// problems the caller should act on: failed cases for run, invalid rows
// for validate. Fatal errors exit 1 through main.
const exitDiagnostics = 2

// ExitError signals a non-zero exit code without printing an error
// message; the command has already reported the details itself.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "" }

// jsonPrint writes v to stdout as indented JSON, the shape every --json
// flag in this tool produces.
func jsonPrint(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
