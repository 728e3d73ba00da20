package batch

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Record is one input row, keyed by column header. A missing or blank
// cell means the parameter is absent.
type Record map[string]string

// Valid reports whether the record carries a non-blank value for every
// required parameter.
func (r Record) Valid(required []string) bool {
	for _, name := range required {
		if r[name] == "" {
			return false
		}
	}
	return true
}

// Missing returns the required parameters the record lacks.
func (r Record) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if r[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Table is a loaded parameter table: column headers in sheet order plus
// one record per data row.
type Table struct {
	Headers []string
	Records []Record
}

// LoadParameterSets reads the first sheet of an input workbook: row 1 is
// the header, every following row one record. No validation happens
// here; the runner filters on required parameters. An input with no data
// rows yields an empty table, which callers must treat as fatal.
func LoadParameterSets(path string, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening input table %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	var headers []string
	for _, h := range rows[0] {
		headers = append(headers, strings.TrimSpace(h))
	}
	// Trailing unnamed columns carry no data we can address.
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	table := &Table{Headers: headers}
	for i, row := range rows[1:] {
		rec := make(Record, len(headers))
		for j, name := range headers {
			if name == "" {
				continue
			}
			if j < len(row) {
				rec[name] = strings.TrimSpace(row[j])
			} else {
				rec[name] = ""
			}
		}
		table.Records = append(table.Records, rec)
		logger.Debug("loaded parameter set",
			zap.Int("row", i+2),
			zap.Any("record", rec))
	}

	logger.Info("parameter table loaded",
		zap.String("path", path),
		zap.String("sheet", sheet),
		zap.Int("columns", len(headers)),
		zap.Int("records", len(table.Records)))
	return table, nil
}
