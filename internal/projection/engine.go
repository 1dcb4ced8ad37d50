// Package projection turns snapshot KPIs and user parameters into a
// multi-year premium trajectory. Everything here is a pure function of its
// inputs and safe for concurrent use.
package projection

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"smechannel/pkg/contracts/domain"
)

// Baseline defaults used before any data has been ingested
const (
	DefaultAdvisorCount          = 10
	DefaultPoliciesPerAdvisorAvg = 24
	DefaultAvgPremium            = 18000

	DefaultYears        = 3
	DefaultEmployees    = 50
	DefaultHirings      = 2
	DefaultTargetGrowth = 20

	MinAveragePremium = 100
	MaxYears          = 50
)

var (
	monthsPerYear   = decimal.NewFromInt(12)
	upliftStep      = decimal.RequireFromString("0.05")
	upliftCap       = decimal.RequireFromString("0.25")
	advisorsPerSeat = decimal.NewFromInt(2)
	hundred         = decimal.NewFromInt(100)
)

// DeriveBaseline builds the projection starting point from a snapshot, or
// from fixed defaults when snap is nil.
func DeriveBaseline(snap *domain.AnalysisSnapshot) domain.Baseline {
	kpis := domain.KPIs{
		AdvisorCount:          DefaultAdvisorCount,
		PoliciesPerAdvisorAvg: DefaultPoliciesPerAdvisorAvg,
		AvgPremiumPerPolicy:   DefaultAvgPremium,
	}
	if snap != nil {
		kpis = snap.KPIs
	}

	b := domain.Baseline{
		Advisors:           maxInt(1, roundHalfUp(float64(kpis.AdvisorCount))),
		PoliciesPerAdvisor: maxInt(0, roundHalfUp(kpis.PoliciesPerAdvisorAvg/12)),
		AveragePremium:     math.Max(MinAveragePremium, float64(roundHalfUp(kpis.AvgPremiumPerPolicy))),
	}
	if snap != nil {
		b.FromSnapshot = true
		b.SnapshotID = snap.ID
	}

	b.Defaults = domain.SimulationParameters{
		Years:               DefaultYears,
		Advisors:            b.Advisors,
		PoliciesPerAdvisor:  b.PoliciesPerAdvisor,
		AveragePremium:      b.AveragePremium,
		Employees:           DefaultEmployees,
		HiringsPerYear:      DefaultHirings,
		TargetGrowthPercent: DefaultTargetGrowth,
	}
	b.Bounds = Bounds(b.Defaults)

	return b
}

// Bounds derives slider limits that leave headroom above the defaults
func Bounds(d domain.SimulationParameters) domain.ParameterBounds {
	return domain.ParameterBounds{
		Years:              domain.Range{Min: 1, Max: MaxYears, Step: 1},
		Advisors:           domain.Range{Min: 1, Max: float64(maxInt(50, d.Advisors*5)), Step: 1},
		PoliciesPerAdvisor: domain.Range{Min: 0, Max: float64(maxInt(50, d.PoliciesPerAdvisor*5+10)), Step: 1},
		AveragePremium:     domain.Range{Min: MinAveragePremium, Max: math.Max(200000, d.AveragePremium*3), Step: 100},
		Employees:          domain.Range{Min: 1, Max: float64(maxInt(1000, d.Employees*5)), Step: 1},
		HiringsPerYear:     domain.Range{Min: 0, Max: float64(maxInt(50, d.HiringsPerYear*10+10)), Step: 1},
		TargetGrowth:       domain.Range{Min: 0, Max: math.Max(100, d.TargetGrowthPercent*2), Step: 1},
	}
}

// BaselineAnnualPremium is the yearly premium the baseline produces unchanged
func BaselineAnnualPremium(b domain.Baseline) float64 {
	return baselineAnnual(b).InexactFloat64()
}

func baselineAnnual(b domain.Baseline) decimal.Decimal {
	return decimal.NewFromInt(int64(b.Advisors)).
		Mul(decimal.NewFromInt(int64(b.PoliciesPerAdvisor))).
		Mul(monthsPerYear).
		Mul(decimal.NewFromFloat(b.AveragePremium))
}

// Capacity is the advisor ceiling supported by the workforce:
// (employees + hirings per year) x 2, rounded.
func Capacity(p domain.SimulationParameters) int {
	seats := decimal.NewFromInt(int64(p.Employees + p.HiringsPerYear)).Mul(advisorsPerSeat)
	return roundHalfUp(seats.InexactFloat64())
}

// Uplift is the ramp multiplier for year y: 5% per year after the first,
// capped at 25%.
func Uplift(year int) decimal.Decimal {
	bonus := upliftStep.Mul(decimal.NewFromInt(int64(year - 1)))
	if bonus.GreaterThan(upliftCap) {
		bonus = upliftCap
	}
	return decimal.NewFromInt(1).Add(bonus)
}

// Project computes the yearly premium trajectory for params starting from b.
//
// Year 1 starts with the baseline advisors, limited by the advisor slider and
// by workforce capacity. After each year round(hirings/2) advisors are added,
// never exceeding that ceiling.
func Project(b domain.Baseline, p domain.SimulationParameters) domain.Projection {
	ceiling := minInt(p.Advisors, maxInt(0, Capacity(p)))
	working := maxInt(0, minInt(ceiling, b.Advisors))
	growth := roundHalfUp(float64(p.HiringsPerYear) / 2)

	perAdvisor := decimal.NewFromInt(int64(p.PoliciesPerAdvisor)).
		Mul(monthsPerYear).
		Mul(decimal.NewFromFloat(p.AveragePremium))

	years := maxInt(0, p.Years)
	out := domain.Projection{
		Labels: make([]string, 0, years),
		Values: make([]float64, 0, years),
	}

	for y := 1; y <= years; y++ {
		value := decimal.NewFromInt(int64(working)).Mul(perAdvisor).Mul(Uplift(y))
		out.Labels = append(out.Labels, fmt.Sprintf("Y%d", y))
		out.Values = append(out.Values, value.InexactFloat64())

		working = minInt(ceiling, working+growth)
	}

	target := decimal.NewFromFloat(p.TargetGrowthPercent).Div(hundred).Add(decimal.NewFromInt(1))
	out.TargetValue = baselineAnnual(b).Mul(target).InexactFloat64()

	return out
}

// roundHalfUp rounds to the nearest integer with halves going up
func roundHalfUp(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
