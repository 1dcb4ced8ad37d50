package dataprocessing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"smechannel/pkg/contracts/domain"
)

// UnknownValue is substituted for blank text fields that have no better default
const UnknownValue = "UNKNOWN"

// CoerceNumber converts a cell value to a number. Numbers pass through,
// text is cleaned with ParseNumber, and anything else becomes 0.
func CoerceNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(n)
	case float32:
		return finiteOrZero(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, _ := ParseNumber(n)
		return f
	default:
		return 0
	}
}

// ParseNumber strips currency symbols, thousands separators and whitespace
// from s and parses the longest leading decimal number. The boolean is false
// when no number could be read, in which case the value is 0.
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)

	prefix := leadingDecimal(cleaned)
	if prefix == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// leadingDecimal returns the longest prefix of s shaped like
// [+-]digits[.digits][e[+-]digits] containing at least one digit.
func leadingDecimal(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}

	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			end = j
		}
	}

	return s[:end]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NormalizeResult holds the records built from the data rows of a grid
type NormalizeResult struct {
	Records []domain.Record
	// CoercedCells counts non-blank premium cells that were not numeric
	CoercedCells int
}

// RowNormalizer turns grid rows below the header into typed records
type RowNormalizer struct {
	logger *slog.Logger
}

// NewRowNormalizer creates a row normalizer
func NewRowNormalizer(logger *slog.Logger) *RowNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowNormalizer{logger: logger.With(slog.String("component", "row_normalizer"))}
}

// Normalize converts every non-blank row after the header row into a record
func (n *RowNormalizer) Normalize(grid domain.RawGrid, schema *Schema) NormalizeResult {
	var result NormalizeResult
	if schema == nil || schema.HeaderRowIndex+1 >= len(grid) {
		return result
	}

	rows := grid[schema.HeaderRowIndex+1:]
	result.Records = make([]domain.Record, 0, len(rows))

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}

		cell := func(f domain.Field) string {
			col, ok := schema.Binding.Lookup(f)
			if !ok || col.Index >= len(row) || col.Index >= len(schema.Headers) {
				return ""
			}
			return row[col.Index]
		}

		premiumCell := cell(domain.FieldPremium)
		premium, ok := ParseNumber(premiumCell)
		if !ok && strings.TrimSpace(premiumCell) != "" {
			result.CoercedCells++
		}

		result.Records = append(result.Records, domain.Record{
			Premium:        premium,
			BusinessType:   textOr(strings.ToUpper(cell(domain.FieldBusinessType)), UnknownValue),
			Category:       textOr(cell(domain.FieldCategory), UnknownValue),
			Advisor:        textOr(cell(domain.FieldAdvisor), UnknownValue),
			LineOfBusiness: textOr(cell(domain.FieldLineOfBusiness), UnknownValue),
			Product:        textOr(cell(domain.FieldProduct), UnknownValue),
			Policy:         textOr(cell(domain.FieldPolicy), ""),
			Intermediary:   textOr(cell(domain.FieldIntermediary), UnknownValue),
			Month:          textOr(cell(domain.FieldMonth), ""),
		})
	}

	if result.CoercedCells > 0 {
		n.logger.Debug("non-numeric premium cells coerced to zero",
			slog.Int("count", result.CoercedCells))
	}

	return result
}

// textOr trims s and returns fallback when nothing remains
func textOr(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}
