package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// cellRefRe matches a cell reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?[A-Z]+\$?\d+$`)

// CellRef is a sheet-qualified cell location in a workbook, e.g. Design!D26.
type CellRef struct {
	Sheet string
	Cell  string
}

func (r CellRef) String() string {
	if strings.ContainsAny(r.Sheet, " !") {
		return "'" + r.Sheet + "'!" + r.Cell
	}
	return r.Sheet + "!" + r.Cell
}

// ParseCellRef parses an address like "Design!D26" into a CellRef.
// The sheet name is required; a bare cell reference that silently fell
// back to the active sheet would target the wrong cell whenever the
// template layout changes.
func ParseCellRef(address string) (CellRef, error) {
	sheetPart, cellPart, hasSheet := strings.Cut(address, "!")
	if !hasSheet {
		return CellRef{}, fmt.Errorf("address must include sheet name (e.g. Design!D26), got %q", address)
	}

	// Remove surrounding quotes from sheet name
	sheet := strings.Trim(sheetPart, "'")
	if sheet == "" {
		return CellRef{}, fmt.Errorf("empty sheet name in address %q", address)
	}

	cell := strings.ToUpper(strings.TrimSpace(cellPart))
	if !cellRefRe.MatchString(cell) {
		return CellRef{}, fmt.Errorf("invalid cell reference %q in address %q", cellPart, address)
	}

	return CellRef{Sheet: sheet, Cell: strings.ReplaceAll(cell, "$", "")}, nil
}
