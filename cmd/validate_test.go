package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func resetValidateFlags(t *testing.T) {
	t.Helper()
	origConfigPath := configPath
	origInput := validateInput
	origTemplate := validateTemplate
	origJSON := validateJSON
	t.Cleanup(func() {
		configPath = origConfigPath
		validateInput = origInput
		validateTemplate = origTemplate
		validateJSON = origJSON
	})
}

func TestRunValidate_AllRowsValid(t *testing.T) {
	resetValidateFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	input, template := writeRunFixtures(t, dir, [][]any{
		{2.0, 3.0, 2.5, 30.0},
		{1.0, 1.0, 2.0, 28.0},
	})

	configPath = ""
	validateInput = input
	validateTemplate = template
	validateJSON = true

	if err := runValidate(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runValidate failed: %v", err)
	}
}

func TestRunValidate_InvalidRowsExitCode2(t *testing.T) {
	resetValidateFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	input, template := writeRunFixtures(t, dir, [][]any{
		{2.0, 3.0, 2.5, 30.0},
		{1.0, 1.0, nil, 28.0}, // missing cohesion
	})

	configPath = ""
	validateInput = input
	validateTemplate = template
	validateJSON = false

	err := runValidate(&cobra.Command{}, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.Code)
	}
}

func TestRunValidate_NonWorkbookTemplate(t *testing.T) {
	resetValidateFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	input, _ := writeRunFixtures(t, dir, [][]any{{2.0, 3.0, 2.5, 30.0}})

	textFile := filepath.Join(dir, "template.xlsx")
	if err := os.WriteFile(textFile, []byte("not a workbook"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	configPath = ""
	validateInput = input
	validateTemplate = textFile
	validateJSON = false

	if err := runValidate(&cobra.Command{}, nil); err == nil {
		t.Fatal("expected error for non-OOXML template")
	}
}
