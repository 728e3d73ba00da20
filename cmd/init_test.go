package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/soilworks/sbcrun/config"
)

func TestRunInit_WritesLoadableDefaults(t *testing.T) {
	origForce := initForce
	t.Cleanup(func() { initForce = origForce })

	dir := t.TempDir()
	path := filepath.Join(dir, "sbcrun.json")

	initForce = false
	if err := runInit(&cobra.Command{}, []string{path}); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config should validate: %v", err)
	}
	if cfg.Cells["width"] != "Design!D26" {
		t.Errorf("width cell = %q, want Design!D26", cfg.Cells["width"])
	}

	// Refuses to clobber without --force
	if err := runInit(&cobra.Command{}, []string{path}); err == nil {
		t.Fatal("expected error when target exists")
	}
	initForce = true
	if err := runInit(&cobra.Command{}, []string{path}); err != nil {
		t.Fatalf("runInit --force failed: %v", err)
	}
}

func TestRunMapping_DefaultConfig(t *testing.T) {
	origConfigPath := configPath
	origJSON := mappingJSON
	t.Cleanup(func() {
		configPath = origConfigPath
		mappingJSON = origJSON
	})
	chdir(t, t.TempDir())

	configPath = ""
	for _, asJSON := range []bool{false, true} {
		mappingJSON = asJSON
		if err := runMapping(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runMapping (json=%v) failed: %v", asJSON, err)
		}
	}
}
