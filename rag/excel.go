package rag

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxRows is the default number of data rows read from a sheet
const DefaultMaxRows = 10

// ExcelOptions configures reading of a workbook
type ExcelOptions struct {
	// Sheet to read, the first sheet is used if empty
	Sheet string
	// MaxRows is the number of data rows to read after the header,
	// DefaultMaxRows is used if zero, and all rows if negative.
	MaxRows int
}

// LoadExcelFile returns the text of the workbook sheet
func LoadExcelFile(name string, opts ExcelOptions) (string, error) {
	f, err := excelize.OpenFile(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open workbook: %s", name)
	}
	defer f.Close()
	return sheetText(f, opts)
}

// LoadExcel returns the text of the workbook sheet
func LoadExcel(r io.Reader, opts ExcelOptions) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", errors.Wrap(err, "failed to read workbook")
	}
	defer f.Close()
	return sheetText(f, opts)
}

// sheetText joins the cells of each data row with a space,
// and the rows with a space. The header row is skipped.
func sheetText(f *excelize.File, opts ExcelOptions) (string, error) {
	sheet := opts.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return "", errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read sheet: %s", sheet)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}

	limit := opts.MaxRows
	if limit == 0 {
		limit = DefaultMaxRows
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, " "), nil
}
