package internal

import (
	"os"
)

// WorkbookFormat represents the detected binary format of a workbook file.
type WorkbookFormat int

const (
	WorkbookFormatUnknown WorkbookFormat = iota
	WorkbookFormatOLE2                   // Binary .xls (magic: d0cf11e0a1b11ae1)
	WorkbookFormatOOXML                  // ZIP-based .xlsx (magic: 504b0304)
)

// DetectWorkbookFormat reads the first bytes of a file and returns the
// detected format. The extension is not trusted: a template saved as
// .xlsx with OLE2 content would fail cell writes with confusing errors
// deep inside a case, so callers sniff up front.
func DetectWorkbookFormat(filePath string) (WorkbookFormat, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return WorkbookFormatUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := f.Read(buf)
	if err != nil {
		return WorkbookFormatUnknown, err
	}
	if n < 4 {
		return WorkbookFormatUnknown, nil
	}

	// OLE2 Compound Document: d0 cf 11 e0 (full signature: d0cf11e0a1b11ae1)
	if buf[0] == 0xd0 && buf[1] == 0xcf && buf[2] == 0x11 && buf[3] == 0xe0 {
		return WorkbookFormatOLE2, nil
	}

	// ZIP (OOXML): PK\x03\x04
	if buf[0] == 0x50 && buf[1] == 0x4b && buf[2] == 0x03 && buf[3] == 0x04 {
		return WorkbookFormatOOXML, nil
	}

	return WorkbookFormatUnknown, nil
}
