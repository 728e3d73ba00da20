package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/soilworks/sbcrun/config"
	"github.com/soilworks/sbcrun/engine"
	"github.com/soilworks/sbcrun/internal"
)

// artifactPattern names per-case saved copies of the template. The index
// is the 1-based position among valid records; %03d widens by itself
// past 999.
const artifactPattern = "Design_Case_%03d.xlsx"

// CaseStatus is the outcome of one case, explicit rather than an
// exception path: either Result+Artifact or Error is set.
type CaseStatus struct {
	Index    int    `json:"index"`
	Result   string `json:"result,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Summary is the run report: counts plus per-case outcomes.
type Summary struct {
	Loaded    int          `json:"loaded"`
	Valid     int          `json:"valid"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Output    string       `json:"output"`
	Cases     []CaseStatus `json:"cases"`
}

// Runner drives a whole batch: load, validate, one engine session per
// valid record, results book at the end. It owns the output table; the
// per-case driver never touches it.
type Runner struct {
	cfg    config.Config
	eng    engine.Engine
	logger *zap.Logger

	cells  map[string]internal.CellRef
	result internal.CellRef

	// sweep terminates lingering engine processes by name. Injectable
	// so tests do not touch the real process table.
	sweep func(name string) ([]int, error)
}

// New builds a Runner for one batch configuration. The configuration is
// validated here so a bad mapping fails before any file is touched.
func New(cfg config.Config, eng engine.Engine, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cells, result, err := cfg.Mapping()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		eng:    eng,
		logger: logger,
		cells:  cells,
		result: result,
		sweep:  internal.SweepProcesses,
	}, nil
}

// Run executes the batch. Fatal conditions (missing files, bad template
// format, empty or all-invalid input) return an error with no output
// written; a single case failure never aborts the batch.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.checkPreconditions(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.cfg.CasesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cases directory %s: %w", r.cfg.CasesDir, err)
	}

	table, err := LoadParameterSets(r.cfg.Input, r.logger)
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		return nil, &EmptyInputError{Reason: fmt.Sprintf("no parameter records in %s", r.cfg.Input)}
	}

	var valid []Record
	for i, rec := range table.Records {
		if rec.Valid(r.cfg.Required) {
			valid = append(valid, rec)
			continue
		}
		r.logger.Warn("dropping record with missing required parameters",
			zap.Int("row", i+2),
			zap.Strings("missing", rec.Missing(r.cfg.Required)))
	}
	r.logger.Info("validated parameter sets",
		zap.Int("valid", len(valid)),
		zap.Int("loaded", len(table.Records)))
	if len(valid) == 0 {
		return nil, &EmptyInputError{
			Reason: fmt.Sprintf("no record in %s carries all required parameters %v", r.cfg.Input, r.cfg.Required),
		}
	}

	book, err := NewResultsBook(table.Headers, r.cfg.ResultColumn)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	summary := &Summary{Loaded: len(table.Records), Valid: len(valid), Output: r.cfg.Output}
	for i, rec := range valid {
		caseIdx := i + 1
		result, artifact, caseErr := r.runCase(ctx, rec, caseIdx)

		// The sweep runs after every case, success or failure: an
		// engine instance that outlived its quit holds file locks and
		// stale state that would corrupt the next case.
		r.sweepProcesses()

		if caseErr != nil {
			r.logger.Error("case failed, continuing batch",
				zap.Int("case", caseIdx),
				zap.Error(caseErr))
			summary.Failed++
			summary.Cases = append(summary.Cases, CaseStatus{Index: caseIdx, Error: caseErr.Error()})
			continue
		}

		if err := book.Append(rec, result); err != nil {
			return nil, fmt.Errorf("appending case %d to output table: %w", caseIdx, err)
		}
		summary.Succeeded++
		summary.Cases = append(summary.Cases, CaseStatus{Index: caseIdx, Result: result, Artifact: artifact})
		r.logger.Info("case succeeded",
			zap.Int("case", caseIdx),
			zap.String("result", result),
			zap.String("artifact", artifact))
	}

	// Save unconditionally once the loop completes, even when every
	// case failed: a header-only table is the agreed outcome.
	if err := book.Save(r.cfg.Output); err != nil {
		return nil, err
	}
	r.logger.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.String("output", r.cfg.Output))
	return summary, nil
}

func (r *Runner) checkPreconditions() error {
	if _, err := os.Stat(r.cfg.Input); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Kind: "input table", Path: r.cfg.Input}
		}
		return fmt.Errorf("checking input table %s: %w", r.cfg.Input, err)
	}
	if _, err := os.Stat(r.cfg.Template); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Kind: "template", Path: r.cfg.Template}
		}
		return fmt.Errorf("checking template %s: %w", r.cfg.Template, err)
	}
	format, err := internal.DetectWorkbookFormat(r.cfg.Template)
	if err != nil {
		return fmt.Errorf("sniffing template %s: %w", r.cfg.Template, err)
	}
	if format != internal.WorkbookFormatOOXML {
		return fmt.Errorf("template %s is not an OOXML workbook", r.cfg.Template)
	}
	return nil
}

// runCase performs one full substitution/recalculation/extraction cycle
// against a fresh engine session. The session and its document are
// released on every exit path; release failures are logged, never
// escalated.
func (r *Runner) runCase(ctx context.Context, rec Record, caseIdx int) (result, artifactPath string, err error) {
	artifactPath = filepath.Join(r.cfg.CasesDir, fmt.Sprintf(artifactPattern, caseIdx))

	if timeout := time.Duration(r.cfg.Engine.CaseTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.logger.Info("starting case",
		zap.Int("case", caseIdx),
		zap.Any("record", rec))

	session, err := r.eng.Start(ctx)
	if err != nil {
		return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("starting engine: %w", err)}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn("closing document failed", zap.Int("case", caseIdx), zap.Error(cerr))
		}
		if qerr := session.Quit(); qerr != nil {
			r.logger.Warn("quitting engine failed", zap.Int("case", caseIdx), zap.Error(qerr))
		}
	}()

	if err := session.Open(ctx, r.cfg.Template); err != nil {
		return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("opening template: %w", err)}
	}

	// Cells are independent, but a deterministic write order keeps logs
	// comparable across runs.
	names := make([]string, 0, len(r.cells))
	for name := range r.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := r.cells[name]
		value := asEngineValue(rec[name])
		r.logger.Debug("writing parameter",
			zap.Int("case", caseIdx),
			zap.String("name", name),
			zap.String("cell", ref.String()),
			zap.Any("value", value))
		if err := session.SetCell(ctx, ref, value); err != nil {
			return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("writing %s to %s: %w", name, ref, err)}
		}
	}

	if err := session.Recalculate(ctx); err != nil {
		return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("recalculating: %w", err)}
	}

	result, err = session.ReadCell(ctx, r.result)
	if err != nil {
		return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("reading result %s: %w", r.result, err)}
	}

	if err := session.SaveAs(ctx, artifactPath); err != nil {
		return "", "", &CaseError{Index: caseIdx, Err: fmt.Errorf("saving artifact: %w", err)}
	}

	return result, artifactPath, nil
}

func (r *Runner) sweepProcesses() {
	name := r.cfg.Engine.ProcessName
	if name == "" {
		return
	}
	pids, err := r.sweep(name)
	if err != nil {
		r.logger.Warn("process sweep failed", zap.String("process", name), zap.Error(err))
		return
	}
	if len(pids) > 0 {
		r.logger.Warn("terminated lingering engine processes",
			zap.String("process", name),
			zap.Ints("pids", pids))
	}
}

// asEngineValue converts a raw cell string into the value written to the
// template: numbers as numbers, anything else verbatim, absent as nil so
// the mapped cell is cleared instead of keeping a stale value.
func asEngineValue(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
