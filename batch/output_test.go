package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestResultsBook(t *testing.T) {
	book, err := NewResultsBook([]string{"width", "phi"}, "Safe_Bearing_Capacity_kN_m2")
	require.NoError(t, err)
	defer book.Close()

	require.NoError(t, book.Append(Record{"width": "2", "phi": "30"}, "412.5"))
	require.NoError(t, book.Append(Record{"width": "1.5", "phi": ""}, "250"))
	require.Equal(t, 2, book.Rows())

	path := filepath.Join(t.TempDir(), "Output.xlsx")
	require.NoError(t, book.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"width", "phi", "Safe_Bearing_Capacity_kN_m2"}, rows[0])
	require.Equal(t, []string{"2", "30", "412.5"}, rows[1])
	// Absent phi leaves the cell blank
	require.Equal(t, "1.5", rows[2][0])
	require.Equal(t, "250", rows[2][2])
}

func TestResultsBook_HeaderOnlySave(t *testing.T) {
	book, err := NewResultsBook([]string{"width"}, "result")
	require.NoError(t, err)
	defer book.Close()

	path := filepath.Join(t.TempDir(), "Output.xlsx")
	require.NoError(t, book.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestResultsBook_RejectsEmptyHeaders(t *testing.T) {
	_, err := NewResultsBook(nil, "result")
	require.Error(t, err)
}
