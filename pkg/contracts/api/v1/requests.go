// Package api contains the HTTP request and response contracts of the v1 API.
package api

import (
	"smechannel/pkg/contracts/domain"
)

// ProjectRequest is the body of a projection request. Omitted fields take
// the value of the baseline defaults.
type ProjectRequest struct {
	Years               *int     `json:"years,omitempty" validate:"omitempty,gte=1,lte=50"`
	Advisors            *int     `json:"advisors,omitempty" validate:"omitempty,gte=0"`
	PoliciesPerAdvisor  *int     `json:"policies_per_advisor_monthly,omitempty" validate:"omitempty,gte=0"`
	AveragePremium      *float64 `json:"average_premium,omitempty" validate:"omitempty,gte=0"`
	Employees           *int     `json:"employees,omitempty" validate:"omitempty,gte=0"`
	HiringsPerYear      *int     `json:"hirings_per_year,omitempty" validate:"omitempty,gte=0"`
	TargetGrowthPercent *float64 `json:"target_growth_percent,omitempty" validate:"omitempty,gte=0"`
}

// Apply overlays the fields present in r onto defaults
func (r ProjectRequest) Apply(defaults domain.SimulationParameters) domain.SimulationParameters {
	p := defaults
	if r.Years != nil {
		p.Years = *r.Years
	}
	if r.Advisors != nil {
		p.Advisors = *r.Advisors
	}
	if r.PoliciesPerAdvisor != nil {
		p.PoliciesPerAdvisor = *r.PoliciesPerAdvisor
	}
	if r.AveragePremium != nil {
		p.AveragePremium = *r.AveragePremium
	}
	if r.Employees != nil {
		p.Employees = *r.Employees
	}
	if r.HiringsPerYear != nil {
		p.HiringsPerYear = *r.HiringsPerYear
	}
	if r.TargetGrowthPercent != nil {
		p.TargetGrowthPercent = *r.TargetGrowthPercent
	}
	return p
}

// ProjectResponse carries a projection together with the inputs that produced it
type ProjectResponse struct {
	Parameters            domain.SimulationParameters `json:"parameters"`
	Projection            domain.Projection           `json:"projection"`
	BaselineAnnualPremium float64                     `json:"baseline_annual_premium"`
	FromSnapshot          bool                        `json:"from_snapshot"`
	SnapshotID            string                      `json:"snapshot_id,omitempty"`
}
