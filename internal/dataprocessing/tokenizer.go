package dataprocessing

import (
	"fmt"
	"io"
	"strings"

	"smechannel/pkg/contracts/domain"
)

const utf8BOM = "\ufeff"

// ParseCSV splits CSV text into rows of cells.
//
// Quoted fields may hold commas and line breaks, and "" inside quotes
// decodes to a single quote. Rows end at \n, \r\n or a bare \r. Rows whose
// cells are all blank are dropped and ragged rows are kept as they are. An
// unterminated quote consumes the rest of the input into the last field.
func ParseCSV(text string) domain.RawGrid {
	text = strings.TrimPrefix(text, utf8BOM)

	t := &tokenizer{}
	inQuotes := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					t.field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			t.field.WriteByte(ch)
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			t.endField()
		case '\n':
			t.endField()
			t.endRow()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			t.endField()
			t.endRow()
		default:
			t.field.WriteByte(ch)
		}
	}

	t.endField()
	t.endRow()

	return t.rows
}

// ParseCSVReader reads r to EOF and tokenizes its contents
func ParseCSVReader(r io.Reader) (domain.RawGrid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv input: %w", err)
	}
	return ParseCSV(string(data)), nil
}

// tokenizer accumulates cells and rows while ParseCSV walks the input
type tokenizer struct {
	rows  domain.RawGrid
	row   []string
	field strings.Builder
}

func (t *tokenizer) endField() {
	t.row = append(t.row, t.field.String())
	t.field.Reset()
}

func (t *tokenizer) endRow() {
	if !isBlankRow(t.row) {
		t.rows = append(t.rows, t.row)
	}
	t.row = nil
}

// isBlankRow reports whether every cell of row is empty after trimming
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
