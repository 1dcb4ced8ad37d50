package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter renders export tables as a single CSV document
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 BOM so Excel detects the encoding
	BOMPrefix bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{BOMPrefix: true}
}

// WriteTables writes each table as a title row, a header row and its
// records. Tables are separated by an empty line.
func (c *CSVWriter) WriteTables(w io.Writer, tables []Table) error {
	if c.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	for i, t := range tables {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return fmt.Errorf("failed to write separator: %w", err)
			}
		}
		if err := writer.Write([]string{t.Name}); err != nil {
			return fmt.Errorf("failed to write title of %s: %w", t.Name, err)
		}
		if err := writer.Write(t.Headers); err != nil {
			return fmt.Errorf("failed to write headers of %s: %w", t.Name, err)
		}
		for j, row := range t.Rows {
			record := make([]string, len(row))
			for k, v := range row {
				record[k] = formatCell(v)
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d of %s: %w", j, t.Name, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
