package batch

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// resultsSheet is the single sheet name of the output workbook.
const resultsSheet = "Results"

// ResultsBook accumulates processed records into the output workbook:
// row 1 is the header (input columns + result column), each appended
// record one row below the last. Only successful cases are appended, so
// a batch where every case fails still saves a header-only book.
type ResultsBook struct {
	f       *excelize.File
	headers []string
	rows    int
}

// NewResultsBook creates the output workbook with its header row.
// Headers must not be empty: an output table with no columns is
// meaningless, and the runner guarantees at least one valid record
// before building the book.
func NewResultsBook(headers []string, resultColumn string) (*ResultsBook, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("results book needs at least one input column")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerRow := make([]any, 0, len(headers)+1)
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	headerRow = append(headerRow, resultColumn)
	if err := f.SetSheetRow(resultsSheet, "A1", &headerRow); err != nil {
		f.Close()
		return nil, err
	}

	return &ResultsBook{f: f, headers: append([]string(nil), headers...)}, nil
}

// Append writes one processed record plus its calculation result as the
// next data row. Numeric-looking values are written as numbers so the
// output stays usable in downstream formulas.
func (b *ResultsBook) Append(rec Record, result string) error {
	row := make([]any, 0, len(b.headers)+1)
	for _, name := range b.headers {
		row = append(row, asCellValue(rec[name]))
	}
	row = append(row, asCellValue(result))

	cell, err := excelize.CoordinatesToCellName(1, b.rows+2)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(resultsSheet, cell, &row); err != nil {
		return err
	}
	b.rows++
	return nil
}

// Rows returns the number of appended data rows.
func (b *ResultsBook) Rows() int { return b.rows }

// Save writes the workbook to path.
func (b *ResultsBook) Save(path string) error {
	if err := b.f.SaveAs(path); err != nil {
		return fmt.Errorf("saving output table %s: %w", path, err)
	}
	return nil
}

// Close releases the underlying workbook.
func (b *ResultsBook) Close() error { return b.f.Close() }

func asCellValue(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
