package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"

	"smechannel/pkg/contracts/domain"
)

// HeaderScanLimit caps how many leading rows are considered as header candidates
const HeaderScanLimit = 30

// ProbeGroup lists the accepted label variants for one field, most specific first
type ProbeGroup struct {
	Field    domain.Field
	Variants []string
}

// HeaderProbes are used to score candidate header rows
var HeaderProbes = []ProbeGroup{
	{Field: domain.FieldPremium, Variants: []string{"USGI NET PREMIUM", "NET PREMIUM", "PREMIUM"}},
	{Field: domain.FieldBusinessType, Variants: []string{"BUSINESS TYPE FRESH RENEWAL", "BUSINESS TYPE", "FRESH RENEWAL", "NEW/RENEW"}},
	{Field: domain.FieldAdvisor, Variants: []string{"BA NAME", "ADVISOR NAME", "ADVISOR", "BA"}},
	{Field: domain.FieldLineOfBusiness, Variants: []string{"LINE OF BUSINESS", "LOB", "PRODUCT LINE"}},
	{Field: domain.FieldCategory, Variants: []string{"INTERMEDIARY CATEGORY", "CHANNEL CATEGORY", "INTERMEDIARY CAT"}},
}

// BindingVariants are used to bind every field once the header row is known
var BindingVariants = []ProbeGroup{
	{Field: domain.FieldPremium, Variants: []string{"USGI NET PREMIUM", "NET PREMIUM", "PREMIUM"}},
	{Field: domain.FieldBusinessType, Variants: []string{"BUSINESS TYPE FRESH RENEWAL", "BUSINESS TYPE", "FRESH RENEWAL"}},
	{Field: domain.FieldCategory, Variants: []string{"INTERMEDIARY CATEGORY", "CHANNEL CATEGORY", "INTERMEDIARY CAT"}},
	{Field: domain.FieldAdvisor, Variants: []string{"BA NAME", "ADVISOR NAME", "ADVISOR", "PRIMARY SALES MANAGER NAME"}},
	{Field: domain.FieldLineOfBusiness, Variants: []string{"LINE OF BUSINESS", "LOB", "PRODUCT LINE"}},
	{Field: domain.FieldProduct, Variants: []string{"PRODUCT NAME", "PRODUCT"}},
	{Field: domain.FieldPolicy, Variants: []string{"POLICY NO", "POLICY NUMBER", "USGIPOS POLICY NUMBER"}},
	{Field: domain.FieldIntermediary, Variants: []string{"INTERMEDIARY", "CHANNEL"}},
	{Field: domain.FieldMonth, Variants: []string{"MONTH", "BOOKING MONTH", "ISSUE MONTH"}},
}

// SchemaError reports required fields that could not be bound to a column
type SchemaError struct {
	Missing  []domain.Field
	Detected map[domain.Field]string
}

func (e *SchemaError) Error() string {
	return "Missing required headers: " + strings.Join(e.MissingNames(), ", ") + "."
}

// MissingNames returns the user-facing names of the missing fields
func (e *SchemaError) MissingNames() []string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = f.DisplayName()
	}
	return names
}

// Schema is the outcome of header detection and field binding
type Schema struct {
	HeaderRowIndex int
	Headers        []string
	Binding        domain.HeaderBinding
	Score          int
	// Detected is false when no candidate row matched any probe and row 0
	// was used as a fallback
	Detected bool
}

// SchemaResolver locates the header row of a grid and binds semantic fields
type SchemaResolver struct {
	matchers  []Matcher
	probes    []ProbeGroup
	bindings  []ProbeGroup
	scanLimit int
	logger    *slog.Logger
}

// NewSchemaResolver creates a resolver using the default matcher cascade
func NewSchemaResolver(logger *slog.Logger) *SchemaResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaResolver{
		matchers:  DefaultMatchers,
		probes:    HeaderProbes,
		bindings:  BindingVariants,
		scanLimit: HeaderScanLimit,
		logger:    logger.With(slog.String("component", "schema_resolver")),
	}
}

// ResolveHeader detects the header row of grid and binds all fields using
// a default resolver.
func ResolveHeader(grid domain.RawGrid) (*Schema, error) {
	return NewSchemaResolver(nil).Resolve(grid)
}

// Resolve detects the header row, canonicalizes its labels and binds every
// field. A *SchemaError is returned, together with the partial schema, when
// a required field is unresolved.
func (r *SchemaResolver) Resolve(grid domain.RawGrid) (*Schema, error) {
	idx, score := r.FindHeaderRow(grid)

	var raw []string
	if idx < len(grid) {
		raw = grid[idx]
	}

	schema := &Schema{
		HeaderRowIndex: idx,
		Headers:        CanonicalHeaders(raw),
		Score:          score,
		Detected:       score > 0,
	}
	schema.Binding = r.Bind(schema.Headers)

	r.logger.Debug("header row resolved",
		slog.Int("header_row_index", idx),
		slog.Int("score", score),
		slog.Any("detected_columns", schema.Binding.Labels()))

	var missing []domain.Field
	for _, f := range domain.RequiredFields {
		if _, ok := schema.Binding[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return schema, &SchemaError{Missing: missing, Detected: schema.Binding.Labels()}
	}

	return schema, nil
}

// FindHeaderRow scores the leading rows of grid and returns the index of
// the best candidate with its score. The earliest row wins ties, scanning
// stops once every probe matches, and row 0 is returned when nothing scores.
func (r *SchemaResolver) FindHeaderRow(grid domain.RawGrid) (int, int) {
	limit := len(grid)
	if limit > r.scanLimit {
		limit = r.scanLimit
	}

	bestIdx, bestScore := 0, -1
	for i := 0; i < limit; i++ {
		score := r.ScoreRow(grid[i])
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
		if score >= len(r.probes) {
			break
		}
	}

	if bestScore <= 0 {
		return 0, 0
	}
	return bestIdx, bestScore
}

// ScoreRow counts how many probe groups match a cell of row
func (r *SchemaResolver) ScoreRow(row []string) int {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = NormalizeLabel(c)
	}

	score := 0
	for _, p := range r.probes {
		if _, ok := MatchColumn(r.matchers, cells, p.Variants); ok {
			score++
		}
	}
	return score
}

// Bind resolves every field against canonical headers. Unresolved fields
// are left out of the binding.
func (r *SchemaResolver) Bind(headers []string) domain.HeaderBinding {
	binding := make(domain.HeaderBinding, len(r.bindings))
	for _, g := range r.bindings {
		if idx, ok := MatchColumn(r.matchers, headers, g.Variants); ok {
			binding[g.Field] = domain.Column{Label: headers[idx], Index: idx}
		}
	}
	return binding
}

// CanonicalHeaders normalizes header labels, names blank cells COL_<n> and
// suffixes repeated labels with _2, _3 and so on. A suffix that is already
// taken by another label is skipped, so the result is always unique.
func CanonicalHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	next := make(map[string]int, len(raw))

	for i, cell := range raw {
		h := NormalizeLabel(cell)
		if h == "" {
			h = fmt.Sprintf("COL_%d", i+1)
		}
		if used[h] {
			base := h
			n := next[base]
			if n == 0 {
				n = 2
			}
			for ; used[h]; n++ {
				h = fmt.Sprintf("%s_%d", base, n)
			}
			next[base] = n
		}
		used[h] = true
		headers[i] = h
	}

	return headers
}
