package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

// SheetName is the worksheet holding the heatmap.
const SheetName = "Heatmap"

// WriteXLSX renders the grid as a colour-filled spreadsheet.
func WriteXLSX(w io.Writer, grid *macro.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	styles := make(map[macro.Status]int, len(StatusColors))
	for status, color := range StatusColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border: []excelize.Border{
				{Type: "left", Color: "#FFFFFF", Style: 2},
				{Type: "right", Color: "#FFFFFF", Style: 2},
				{Type: "top", Color: "#FFFFFF", Style: 2},
				{Type: "bottom", Color: "#FFFFFF", Style: 2},
			},
		})
		if err != nil {
			return err
		}
		styles[status] = id
	}

	if err := f.SetCellValue(SheetName, "A1", "Month"); err != nil {
		return err
	}
	for i, ind := range grid.Indicators {
		cell, err := excelize.CoordinatesToCellName(i+2, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, ind.Label); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(grid.Indicators)+1, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, header); err != nil {
		return err
	}

	for r, j := range newestFirst(grid.Periods) {
		row := r + 2
		label, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(SheetName, label, grid.Periods[j].Format(macro.PeriodLabelLayout)); err != nil {
			return err
		}
		for i := range grid.Indicators {
			c := grid.Cells[i][j]
			name, err := excelize.CoordinatesToCellName(i+2, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, name, c.Display); err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetName, name, name, styles[c.Status]); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 12); err != nil {
		return err
	}
	if len(grid.Indicators) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(grid.Indicators) + 1)
		if err := f.SetColWidth(SheetName, "B", lastCol, 14); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}
