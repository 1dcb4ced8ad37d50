package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter renders export tables as a workbook, one sheet per table
type XLSXWriter struct {
	ColumnWidth float64
}

// NewXLSXWriter creates a workbook writer
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{ColumnWidth: 22}
}

// WriteTables builds the workbook in memory and streams it to w
func (x *XLSXWriter) WriteTables(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", t.Name, err)
		}

		if err := x.writeSheet(f, t, headerStyle, moneyStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (x *XLSXWriter) writeSheet(f *excelize.File, t Table, headerStyle, moneyStyle int) error {
	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", t.Name, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return fmt.Errorf("invalid header width for %s: %w", t.Name, err)
	}
	if err := f.SetCellStyle(t.Name, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style headers of %s: %w", t.Name, err)
	}
	if err := f.SetColWidth(t.Name, "A", lastCol, x.ColumnWidth); err != nil {
		return fmt.Errorf("failed to size columns of %s: %w", t.Name, err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		copy(values, row)

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r, t.Name, err)
		}

		for c, v := range row {
			if _, ok := v.(float64); !ok {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(t.Name, ref, ref, moneyStyle); err != nil {
				return fmt.Errorf("failed to style %s!%s: %w", t.Name, ref, err)
			}
		}
	}

	return nil
}
