package handler

import (
	"github.com/xuri/excelize/v2"
)

const (
	VarianceSheet = "Variance"
	UnmappedSheet = "Unmapped"
)

var varianceHeader = []interface{}{"Inventory Item", "Sales Item", "Total Sold", "Theoretical Usage", "Unit"}

// ExportVarianceXLSX renders a report as a workbook. The caller closes the file.
func ExportVarianceXLSX(report *VarianceReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", VarianceSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(VarianceSheet, "A1", &varianceHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, line := range report.Lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{line.InventoryItemName, line.SalesItemID, line.TotalSold, line.TheoreticalUsage, line.Unit}
		if err := f.SetSheetRow(VarianceSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if len(report.UnmappedItems) > 0 {
		if _, err := f.NewSheet(UnmappedSheet); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(UnmappedSheet, "A1", "Sales Item"); err != nil {
			f.Close()
			return nil, err
		}
		for i, id := range report.UnmappedItems {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(UnmappedSheet, cell, id); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	return f, nil
}
