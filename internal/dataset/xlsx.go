package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/hpml/internal/apperr"
)

const sheetName = "Predictions"

// ReadXLSX reads the first sheet of an XLSX workbook. The first row is the
// header; short rows are padded with empty cells. Blank rows between data
// rows are kept so record i is always sheet row i+1.
func ReadXLSX(path string) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnreadableInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnreadableInput, err)
	}
	if len(rows) < 2 {
		return nil, apperr.ErrEmptyInput
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make([]string, len(header))
		copy(rec, row)
		records = append(records, rec)
	}
	return &Frame{Header: header, Records: records}, nil
}

// WriteXLSX writes f to a single-sheet workbook. Numeric cells are stored as
// numbers.
func WriteXLSX(path string, f *Frame) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("dataset: rename sheet: %w", err)
	}
	for j, h := range f.Header {
		if err := setCell(x, j, 1, h); err != nil {
			return err
		}
	}
	for i, rec := range f.Records {
		for j, v := range rec {
			var cell any = v
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cell = n
			}
			if err := setCell(x, j, i+2, cell); err != nil {
				return err
			}
		}
	}
	if err := x.SaveAs(path); err != nil {
		return fmt.Errorf("dataset: save %s: %w", path, err)
	}
	return nil
}

func setCell(x *excelize.File, col, row int, v any) error {
	name, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return x.SetCellValue(sheetName, name, v)
}
