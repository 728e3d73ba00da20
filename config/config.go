package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/soilworks/sbcrun/internal"
)

// DefaultFileName is looked for in the working directory when no
// explicit --config path is given.
const DefaultFileName = "sbcrun.json"

// Duration wraps time.Duration so config files can say "90s" or "2m".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Engine configures which calculation engine drives the template and how.
type Engine struct {
	// Kind selects the engine: "local" (in-process) or "remote"
	// (websocket calc service).
	Kind string `json:"kind"`
	// URL of the remote calc service. Required when Kind is "remote".
	URL string `json:"url,omitempty"`
	// ProcessName, when set, is swept (killed by exact name match) after
	// every case. Meant for deployments where the engine runs as a local
	// helper process that can linger after an ungraceful quit.
	ProcessName string `json:"process_name,omitempty"`
	// CaseTimeout bounds one full engine lifecycle (open through save).
	// Zero means no timeout.
	CaseTimeout Duration `json:"case_timeout,omitempty"`
}

// Config is the full batch configuration. It is passed into the runner
// at construction time so multiple batches with different configurations
// can run in one process.
type Config struct {
	Input    string `json:"input"`
	Template string `json:"template"`
	Output   string `json:"output"`
	CasesDir string `json:"cases_dir"`

	// Cells maps logical parameter names to template addresses like
	// "Design!D26". The mapping is configuration, not derived data: it
	// must match the template layout exactly.
	Cells      map[string]string `json:"cells"`
	ResultCell string            `json:"result_cell"`

	// ResultColumn is the header of the derived-result column appended
	// to the output table.
	ResultColumn string `json:"result_column"`

	// Required lists the parameter names a record must carry to be
	// processed. Records missing any of them are dropped.
	Required []string `json:"required"`

	Engine Engine `json:"engine"`
}

// Default returns the configuration matching the reference footing
// design template.
func Default() Config {
	return Config{
		Input:    "Input.xlsx",
		Template: "Design.xlsx",
		Output:   "Output.xlsx",
		CasesDir: "Design_Cases",
		Cells: map[string]string{
			"width":        "Design!D26",
			"length":       "Design!D27",
			"cohesion":     "Design!D20",
			"phi":          "Design!D19",
			"gwt_depth":    "Design!D33",
			"burial_depth": "Design!D28",
		},
		ResultCell:   "Design!B68",
		ResultColumn: "Safe_Bearing_Capacity_kN_m2",
		Required:     []string{"width", "length", "cohesion", "phi"},
		Engine:       Engine{Kind: "local"},
	}
}

// Load reads a config file and merges it over the defaults. With an
// empty path, the default file name is tried in the working directory
// and a missing file just yields the defaults; an explicit path that
// does not exist is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	// Unmarshalling over the defaults merges: absent fields keep their
	// default, cell entries override per name.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk atomically using a temp file + rename.
func Save(cfg Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	// Remove dest first for Windows compat (os.Rename fails if dest exists on Windows).
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Mapping resolves the configured cell addresses into parsed references.
func (c Config) Mapping() (cells map[string]internal.CellRef, result internal.CellRef, err error) {
	cells = make(map[string]internal.CellRef, len(c.Cells))
	for name, addr := range c.Cells {
		ref, err := internal.ParseCellRef(addr)
		if err != nil {
			return nil, internal.CellRef{}, fmt.Errorf("cell mapping %q: %w", name, err)
		}
		cells[name] = ref
	}
	result, err = internal.ParseCellRef(c.ResultCell)
	if err != nil {
		return nil, internal.CellRef{}, fmt.Errorf("result cell: %w", err)
	}
	return cells, result, nil
}

// Validate checks the configuration for problems that would make a run
// meaningless, before any file is touched.
func (c Config) Validate() error {
	if c.Input == "" || c.Template == "" || c.Output == "" || c.CasesDir == "" {
		return fmt.Errorf("input, template, output and cases_dir must all be set")
	}
	if len(c.Cells) == 0 {
		return fmt.Errorf("cell mapping is empty")
	}
	if c.ResultColumn == "" {
		return fmt.Errorf("result_column must be set")
	}
	if len(c.Required) == 0 {
		return fmt.Errorf("required parameter list is empty")
	}
	if _, _, err := c.Mapping(); err != nil {
		return err
	}
	switch c.Engine.Kind {
	case "local":
	case "remote":
		if c.Engine.URL == "" {
			return fmt.Errorf("engine.url must be set for the remote engine")
		}
	default:
		return fmt.Errorf("unknown engine kind %q (want local or remote)", c.Engine.Kind)
	}
	if time.Duration(c.Engine.CaseTimeout) < 0 {
		return fmt.Errorf("engine.case_timeout must not be negative")
	}
	return nil
}
