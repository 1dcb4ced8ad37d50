package projection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/pkg/contracts/domain"
)

func TestDeriveBaseline_Defaults(t *testing.T) {
	b := DeriveBaseline(nil)

	assert.Equal(t, 10, b.Advisors)
	assert.Equal(t, 2, b.PoliciesPerAdvisor)
	assert.Equal(t, 18000.0, b.AveragePremium)
	assert.False(t, b.FromSnapshot)

	assert.Equal(t, domain.SimulationParameters{
		Years:               3,
		Advisors:            10,
		PoliciesPerAdvisor:  2,
		AveragePremium:      18000,
		Employees:           50,
		HiringsPerYear:      2,
		TargetGrowthPercent: 20,
	}, b.Defaults)
}

func TestDeriveBaseline_FromSnapshot(t *testing.T) {
	tests := []struct {
		name       string
		kpis       domain.KPIs
		advisors   int
		ppa        int
		avgPremium float64
	}{
		{
			name:       "rounded values",
			kpis:       domain.KPIs{AdvisorCount: 12, PoliciesPerAdvisorAvg: 30, AvgPremiumPerPolicy: 3041.67},
			advisors:   12,
			ppa:        3,
			avgPremium: 3042,
		},
		{
			name:       "floors applied",
			kpis:       domain.KPIs{AdvisorCount: 0, PoliciesPerAdvisorAvg: 5, AvgPremiumPerPolicy: 50},
			advisors:   1,
			ppa:        0,
			avgPremium: 100,
		},
		{
			name:       "half rounds up",
			kpis:       domain.KPIs{AdvisorCount: 4, PoliciesPerAdvisorAvg: 18, AvgPremiumPerPolicy: 1000.5},
			advisors:   4,
			ppa:        2,
			avgPremium: 1001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DeriveBaseline(&domain.AnalysisSnapshot{ID: "snap-1", KPIs: tt.kpis})
			assert.Equal(t, tt.advisors, b.Advisors)
			assert.Equal(t, tt.ppa, b.PoliciesPerAdvisor)
			assert.Equal(t, tt.avgPremium, b.AveragePremium)
			assert.True(t, b.FromSnapshot)
			assert.Equal(t, "snap-1", b.SnapshotID)
		})
	}
}

func TestBounds(t *testing.T) {
	small := Bounds(domain.SimulationParameters{Advisors: 4, PoliciesPerAdvisor: 2, AveragePremium: 18000, Employees: 50, HiringsPerYear: 2})
	assert.Equal(t, 50.0, small.Advisors.Max)
	assert.Equal(t, 50.0, small.PoliciesPerAdvisor.Max)
	assert.Equal(t, 200000.0, small.AveragePremium.Max)
	assert.Equal(t, 100.0, small.AveragePremium.Step)
	assert.Equal(t, 1000.0, small.Employees.Max)
	assert.Equal(t, 50.0, small.HiringsPerYear.Max)
	assert.Equal(t, domain.Range{Min: 1, Max: 50, Step: 1}, small.Years)
	assert.Equal(t, 100.0, small.TargetGrowth.Max)

	large := Bounds(domain.SimulationParameters{Advisors: 40, PoliciesPerAdvisor: 12, AveragePremium: 90000, Employees: 300, HiringsPerYear: 6, TargetGrowthPercent: 150})
	assert.Equal(t, 200.0, large.Advisors.Max)
	assert.Equal(t, 70.0, large.PoliciesPerAdvisor.Max)
	assert.Equal(t, 270000.0, large.AveragePremium.Max)
	assert.Equal(t, 1500.0, large.Employees.Max)
	assert.Equal(t, 70.0, large.HiringsPerYear.Max)
	assert.Equal(t, 300.0, large.TargetGrowth.Max)
}

func TestUplift(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{1, "1"},
		{2, "1.05"},
		{3, "1.1"},
		{6, "1.25"},
		{7, "1.25"},
		{20, "1.25"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Uplift(tt.year).String(), "year %d", tt.year)
	}
}

func TestProject_Defaults(t *testing.T) {
	b := DeriveBaseline(nil)
	p := Project(b, b.Defaults)

	assert.Equal(t, []string{"Y1", "Y2", "Y3"}, p.Labels)
	assert.Equal(t, []float64{4320000, 4536000, 4752000}, p.Values)
	assert.Equal(t, 5184000.0, p.TargetValue)
}

func TestProject_CapacityCeiling(t *testing.T) {
	b := domain.Baseline{Advisors: 10, PoliciesPerAdvisor: 2, AveragePremium: 18000}
	params := domain.SimulationParameters{
		Years:              2,
		Advisors:           10,
		PoliciesPerAdvisor: 2,
		AveragePremium:     18000,
		Employees:          1,
		HiringsPerYear:     0,
	}

	assert.Equal(t, 2, Capacity(params))
	p := Project(b, params)
	assert.Equal(t, []float64{864000, 907200}, p.Values)
}

func TestProject_AdvisorGrowth(t *testing.T) {
	b := domain.Baseline{Advisors: 5, PoliciesPerAdvisor: 1, AveragePremium: 1000}
	params := domain.SimulationParameters{
		Years:               4,
		Advisors:            8,
		PoliciesPerAdvisor:  1,
		AveragePremium:      1000,
		Employees:           50,
		HiringsPerYear:      3,
		TargetGrowthPercent: 50,
	}

	p := Project(b, params)
	assert.Equal(t, []float64{60000, 88200, 105600, 110400}, p.Values)
	assert.Equal(t, 90000.0, p.TargetValue)
}

func TestProject_AdvisorSliderBelowBaseline(t *testing.T) {
	b := domain.Baseline{Advisors: 10, PoliciesPerAdvisor: 1, AveragePremium: 1000}
	params := domain.SimulationParameters{Years: 1, Advisors: 3, PoliciesPerAdvisor: 1, AveragePremium: 1000, Employees: 50}

	p := Project(b, params)
	assert.Equal(t, []float64{36000}, p.Values)
}

func TestProject_ZeroYears(t *testing.T) {
	p := Project(DeriveBaseline(nil), domain.SimulationParameters{Years: 0, Advisors: 5, Employees: 5})
	assert.Empty(t, p.Labels)
	assert.Empty(t, p.Values)
}

func TestProject_Deterministic(t *testing.T) {
	b := DeriveBaseline(&domain.AnalysisSnapshot{KPIs: domain.KPIs{AdvisorCount: 7, PoliciesPerAdvisorAvg: 40, AvgPremiumPerPolicy: 12345.67}})
	params := b.Defaults
	params.Years = 8
	params.HiringsPerYear = 5

	first, err := json.Marshal(Project(b, params))
	require.NoError(t, err)
	second, err := json.Marshal(Project(b, params))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
