package dataprocessing

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"smechannel/pkg/contracts/domain"
)

// SourceFormat identifies how an input file is decoded into a grid
type SourceFormat string

const (
	FormatCSV      SourceFormat = "csv"
	FormatWorkbook SourceFormat = "workbook"
)

// DetectFormat picks the decoder for a file name. .xlsx and .xlsm are read
// as workbooks and everything else as CSV text.
func DetectFormat(name string) SourceFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatWorkbook
	default:
		return FormatCSV
	}
}

// ReadWorkbook returns the rows of the first sheet of a workbook along with
// the sheet name. Rows keep their sheet positions so header indexes line up
// with the spreadsheet. Cells are read as stored values, not as their
// number-formatted display text.
func ReadWorkbook(r io.Reader) (domain.RawGrid, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, sheets[0], fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return domain.RawGrid(rows), sheets[0], nil
}
