package domain

// SimulationParameters are the user-adjustable inputs of a projection
type SimulationParameters struct {
	Years               int     `json:"years" validate:"gte=1,lte=50"`
	Advisors            int     `json:"advisors" validate:"gte=0"`
	PoliciesPerAdvisor  int     `json:"policies_per_advisor_monthly" validate:"gte=0"`
	AveragePremium      float64 `json:"average_premium" validate:"gte=0"`
	Employees           int     `json:"employees" validate:"gte=0"`
	HiringsPerYear      int     `json:"hirings_per_year" validate:"gte=0"`
	TargetGrowthPercent float64 `json:"target_growth_percent" validate:"gte=0"`
}

// Range is the allowed span of one slider
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// ParameterBounds are the slider limits derived from a baseline
type ParameterBounds struct {
	Years              Range `json:"years"`
	Advisors           Range `json:"advisors"`
	PoliciesPerAdvisor Range `json:"policies_per_advisor_monthly"`
	AveragePremium     Range `json:"average_premium"`
	Employees          Range `json:"employees"`
	HiringsPerYear     Range `json:"hirings_per_year"`
	TargetGrowth       Range `json:"target_growth_percent"`
}

// Baseline is the starting point of a projection
type Baseline struct {
	Advisors           int     `json:"advisors"`
	PoliciesPerAdvisor int     `json:"policies_per_advisor_monthly"`
	AveragePremium     float64 `json:"average_premium"`
	FromSnapshot       bool    `json:"from_snapshot"`
	SnapshotID         string  `json:"snapshot_id,omitempty"`

	// Defaults seeds the sliders before the user adjusts them
	Defaults SimulationParameters `json:"defaults"`
	Bounds   ParameterBounds      `json:"bounds"`
}

// Projection is a multi-year premium trajectory plus a constant target line
type Projection struct {
	Labels      []string  `json:"labels"`
	Values      []float64 `json:"values"`
	TargetValue float64   `json:"target_value"`
}
