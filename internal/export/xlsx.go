// Package export renders loaded student data as an xlsx workbook.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"sulamboard/internal/service"
)

const sheetName = "Student Data"

// Workbook renders the table as a single-sheet xlsx file: the name column
// at width 20, data columns at width 15.
func Workbook(table *service.ExportTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &table.Headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		cells := make([]interface{}, 0, len(row.Values)+1)
		cells = append(cells, row.Name)
		for _, v := range row.Values {
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return nil, err
	}
	if len(table.Headers) > 1 {
		last, err := excelize.ColumnNumberToName(len(table.Headers))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, "B", last, 15); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
