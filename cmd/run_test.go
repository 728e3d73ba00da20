package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/soilworks/sbcrun/batch"
)

func resetRunFlags(t *testing.T) {
	t.Helper()
	origConfigPath := configPath
	origInput := runInput
	origTemplate := runTemplate
	origOutput := runOutput
	origCasesDir := runCasesDir
	origEngine := runEngine
	origJSON := runJSON
	t.Cleanup(func() {
		configPath = origConfigPath
		runInput = origInput
		runTemplate = origTemplate
		runOutput = origOutput
		runCasesDir = origCasesDir
		runEngine = origEngine
		runJSON = origJSON
	})
}

// writeRunFixtures lays out an input table and a formula template that
// derives the result from the mapped width, length and cohesion cells.
func writeRunFixtures(t *testing.T, dir string, rows [][]any) (input, template string) {
	t.Helper()

	input = filepath.Join(dir, "Input.xlsx")
	in := excelize.NewFile()
	defer in.Close()
	header := []any{"width", "length", "cohesion", "phi"}
	if err := in.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := in.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row: %v", err)
		}
	}
	if err := in.SaveAs(input); err != nil {
		t.Fatalf("saving input: %v", err)
	}

	template = filepath.Join(dir, "Design.xlsx")
	tpl := excelize.NewFile()
	defer tpl.Close()
	if err := tpl.SetSheetName("Sheet1", "Design"); err != nil {
		t.Fatalf("renaming sheet: %v", err)
	}
	if err := tpl.SetCellFormula("Design", "B68", "D26*D27*D20*10"); err != nil {
		t.Fatalf("setting formula: %v", err)
	}
	if err := tpl.SaveAs(template); err != nil {
		t.Fatalf("saving template: %v", err)
	}
	return input, template
}

func TestRunBatch_LocalEngineEndToEnd(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	input, template := writeRunFixtures(t, dir, [][]any{
		{2.0, 3.0, 2.5, 30.0},
		{1.0, 1.0, nil, 28.0}, // missing cohesion, dropped
		{1.0, 1.0, 2.0, 28.0},
	})

	configPath = ""
	runInput = input
	runTemplate = template
	runOutput = filepath.Join(dir, "Output.xlsx")
	runCasesDir = filepath.Join(dir, "Design_Cases")
	runEngine = "local"
	runJSON = true

	if err := runBatch(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runBatch failed: %v", err)
	}

	f, err := excelize.OpenFile(runOutput)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("reading results: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("output rows = %d, want 3 (header + 2 cases)", len(rows))
	}
	if rows[1][4] != "150" {
		t.Errorf("case 1 result = %q, want 150", rows[1][4])
	}
	if rows[2][4] != "20" {
		t.Errorf("case 2 result = %q, want 20", rows[2][4])
	}

	// Per-case artifacts exist for succeeded cases only, indexed by
	// position among valid rows.
	for _, name := range []string{"Design_Case_001.xlsx", "Design_Case_002.xlsx"} {
		artifact := filepath.Join(runCasesDir, name)
		af, err := excelize.OpenFile(artifact)
		if err != nil {
			t.Fatalf("opening artifact %s: %v", name, err)
		}
		af.Close()
	}
}

func TestRunBatch_MissingInputIsFatal(t *testing.T) {
	resetRunFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	_, template := writeRunFixtures(t, dir, nil)

	configPath = ""
	runInput = filepath.Join(dir, "nope.xlsx")
	runTemplate = template
	runOutput = filepath.Join(dir, "Output.xlsx")
	runCasesDir = filepath.Join(dir, "Design_Cases")
	runEngine = "local"
	runJSON = false

	err := runBatch(&cobra.Command{}, nil)
	var nfe *batch.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRunBatch_UnknownEngine(t *testing.T) {
	resetRunFlags(t)
	chdir(t, t.TempDir())

	configPath = ""
	runEngine = "cloud"
	if err := runBatch(&cobra.Command{}, nil); err == nil {
		t.Fatal("expected error for unknown engine kind")
	}
}
