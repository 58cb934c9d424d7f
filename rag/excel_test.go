package rag_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/effective-security/mcpchat/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows int) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Project", "Country", "Amount"}))
	for i := 1; i <= rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &[]any{fmt.Sprintf("P%d", i), "VN", i * 100}))
	}
	return f
}

func TestLoadExcel(t *testing.T) {
	t.Parallel()

	f := writeWorkbook(t, 12)
	defer f.Close()

	name := filepath.Join(t.TempDir(), "projects.xlsx")
	require.NoError(t, f.SaveAs(name))

	text, err := rag.LoadExcelFile(name, rag.ExcelOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, "P1 VN 100 P2 VN 200", text)

	text, err = rag.LoadExcelFile(name, rag.ExcelOptions{})
	require.NoError(t, err)
	assert.Contains(t, text, "P10 VN 1000")
	assert.NotContains(t, text, "P11")
	assert.NotContains(t, text, "Project")

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	text, err = rag.LoadExcel(buf, rag.ExcelOptions{MaxRows: -1})
	require.NoError(t, err)
	assert.Contains(t, text, "P12 VN 1200")

	_, err = rag.LoadExcelFile(name, rag.ExcelOptions{Sheet: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read sheet: Missing")

	_, err = rag.LoadExcelFile(filepath.Join(t.TempDir(), "none.xlsx"), rag.ExcelOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open workbook")
}

func TestLoadExcelHeaderOnly(t *testing.T) {
	t.Parallel()

	f := writeWorkbook(t, 0)
	defer f.Close()

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	text, err := rag.LoadExcel(buf, rag.ExcelOptions{})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, rag.Chunk(text, 0))
}
