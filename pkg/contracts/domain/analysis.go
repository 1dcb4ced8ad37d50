package domain

import (
	"time"
)

// RawGrid is an ordered sequence of rows, each an ordered sequence of cells.
// Rows are not required to have the same width.
type RawGrid [][]string

// Field identifies one semantic column of a policy transaction export
type Field string

const (
	FieldPremium        Field = "PREMIUM"
	FieldBusinessType   Field = "BUSINESS_TYPE"
	FieldCategory       Field = "CATEGORY"
	FieldAdvisor        Field = "ADVISOR"
	FieldLineOfBusiness Field = "LINE_OF_BUSINESS"
	FieldProduct        Field = "PRODUCT"
	FieldPolicy         Field = "POLICY"
	FieldIntermediary   Field = "INTERMEDIARY"
	FieldMonth          Field = "MONTH"
)

// AllFields lists every semantic field in binding order
var AllFields = []Field{
	FieldPremium,
	FieldBusinessType,
	FieldCategory,
	FieldAdvisor,
	FieldLineOfBusiness,
	FieldProduct,
	FieldPolicy,
	FieldIntermediary,
	FieldMonth,
}

// RequiredFields must all be bound before rows are normalized
var RequiredFields = []Field{
	FieldPremium,
	FieldBusinessType,
	FieldAdvisor,
	FieldLineOfBusiness,
	FieldCategory,
}

// IsRequired reports whether ingestion fails when the field cannot be bound
func (f Field) IsRequired() bool {
	for _, r := range RequiredFields {
		if r == f {
			return true
		}
	}
	return false
}

// DisplayName returns the label users see when the field is missing
func (f Field) DisplayName() string {
	switch f {
	case FieldPremium:
		return "USGI NET PREMIUM (or NET PREMIUM)"
	case FieldBusinessType:
		return "BUSINESS TYPE FRESH RENEWAL (or BUSINESS TYPE)"
	case FieldAdvisor:
		return "BA NAME (or ADVISOR NAME)"
	case FieldLineOfBusiness:
		return "LINE OF BUSINESS (or LOB)"
	case FieldCategory:
		return "INTERMEDIARY CATEGORY"
	case FieldProduct:
		return "PRODUCT NAME"
	case FieldPolicy:
		return "POLICY NO"
	case FieldIntermediary:
		return "INTERMEDIARY"
	case FieldMonth:
		return "MONTH"
	default:
		return string(f)
	}
}

// Column is a resolved header cell
type Column struct {
	Label string `json:"label"`
	Index int    `json:"index"`
}

// HeaderBinding maps semantic fields to resolved columns. Unresolved fields
// have no entry.
type HeaderBinding map[Field]Column

// Lookup returns the column bound to f
func (b HeaderBinding) Lookup(f Field) (Column, bool) {
	c, ok := b[f]
	return c, ok
}

// Labels returns the bound column label per field, for reporting
func (b HeaderBinding) Labels() map[Field]string {
	out := make(map[Field]string, len(b))
	for f, c := range b {
		out[f] = c.Label
	}
	return out
}

// Record is one normalized policy transaction
type Record struct {
	Premium        float64 `json:"premium"`
	BusinessType   string  `json:"business_type"`
	Category       string  `json:"category"`
	Advisor        string  `json:"advisor"`
	LineOfBusiness string  `json:"line_of_business"`
	Product        string  `json:"product"`
	Policy         string  `json:"policy"`
	Intermediary   string  `json:"intermediary"`
	Month          string  `json:"month"`
}

// GroupSummary aggregates premium for one grouping key
type GroupSummary struct {
	Key   string  `json:"key"`
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// AdvisorSummary aggregates premium for one advisor
type AdvisorSummary struct {
	Name       string  `json:"name"`
	Policies   int     `json:"policies"`
	NetPremium float64 `json:"net_premium"`
	AvgPremium float64 `json:"avg_premium"`
}

// KPIs are the headline scalars of one analysis
type KPIs struct {
	TotalPremium          float64 `json:"total_usgi_net_premium"`
	PolicyCount           int     `json:"policy_count"`
	AvgPremiumPerPolicy   float64 `json:"avg_premium_per_policy"`
	AdvisorCount          int     `json:"advisor_count"`
	PoliciesPerAdvisorAvg float64 `json:"policies_per_advisor_avg"`
	UsedRows              int     `json:"used_rows"`
	ActiveRows            int     `json:"active_rows"`
	TotalRows             int     `json:"total_rows"`
}

// Band labels in output order
const (
	BandVeryLow  = "Very Low"
	BandLow      = "Low"
	BandMid      = "Mid"
	BandHigh     = "High"
	BandVeryHigh = "Very High"
)

// BandOrder is the fixed presentation order of premium bands
var BandOrder = []string{BandVeryLow, BandLow, BandMid, BandHigh, BandVeryHigh}

// BandThresholds holds the quintile cut points used for banding
type BandThresholds struct {
	P20 float64 `json:"p20"`
	P40 float64 `json:"p40"`
	P60 float64 `json:"p60"`
	P80 float64 `json:"p80"`
}

// Band classifies a premium into one of the five fixed bands
func (t BandThresholds) Band(premium float64) string {
	switch {
	case premium <= t.P20:
		return BandVeryLow
	case premium <= t.P40:
		return BandLow
	case premium <= t.P60:
		return BandMid
	case premium <= t.P80:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

// ConditionCode names a non-fatal fallback taken during ingestion
type ConditionCode string

const (
	ConditionEmptyActiveSet        ConditionCode = "EMPTY_ACTIVE_SET"
	ConditionBandingSkipped        ConditionCode = "BANDING_SKIPPED"
	ConditionOptionalColumnMissing ConditionCode = "OPTIONAL_COLUMN_MISSING"
	ConditionNumericCoercion       ConditionCode = "NUMERIC_COERCION"
	ConditionHeaderNotDetected     ConditionCode = "HEADER_NOT_DETECTED"
)

// Condition records one observable fallback
type Condition struct {
	Code    ConditionCode `json:"code"`
	Message string        `json:"message"`
	Field   Field         `json:"field,omitempty"`
	Count   int           `json:"count,omitempty"`
}

// SnapshotMeta describes how a snapshot was produced
type SnapshotMeta struct {
	Source          string           `json:"source,omitempty"`
	HeaderRowIndex  int              `json:"header_row_index"`
	Headers         []string         `json:"headers"`
	DetectedColumns map[Field]string `json:"detected_columns"`
	Warning         string           `json:"warning,omitempty"`
	Conditions      []Condition      `json:"conditions"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// HasCondition reports whether a condition with the given code was recorded
func (m SnapshotMeta) HasCondition(code ConditionCode) bool {
	for _, c := range m.Conditions {
		if c.Code == code {
			return true
		}
	}
	return false
}

// AnalysisSnapshot is the immutable result of one ingestion pass
type AnalysisSnapshot struct {
	ID                string           `json:"id"`
	KPIs              KPIs             `json:"kpis"`
	Category          []GroupSummary   `json:"intermediary_category"`
	LineOfBusiness    []GroupSummary   `json:"line_of_business"`
	PremiumBanding    []GroupSummary   `json:"premium_banding"`
	PremiumThresholds *BandThresholds  `json:"premium_thresholds"`
	TopAdvisors       []AdvisorSummary `json:"top_ba"`
	Meta              SnapshotMeta     `json:"meta"`
}

// BandingSkipped reports whether premium banding was omitted
func (s *AnalysisSnapshot) BandingSkipped() bool {
	return s.PremiumBanding == nil
}
