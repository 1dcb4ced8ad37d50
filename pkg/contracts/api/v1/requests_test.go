package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/pkg/contracts/domain"
)

func TestProjectRequest_Apply(t *testing.T) {
	defaults := domain.SimulationParameters{
		Years:               3,
		Advisors:            10,
		PoliciesPerAdvisor:  2,
		AveragePremium:      18000,
		Employees:           50,
		HiringsPerYear:      2,
		TargetGrowthPercent: 20,
	}

	tests := []struct {
		name string
		body string
		want domain.SimulationParameters
	}{
		{
			name: "empty body keeps defaults",
			body: `{}`,
			want: defaults,
		},
		{
			name: "explicit zero overrides",
			body: `{"hirings_per_year":0,"years":5}`,
			want: func() domain.SimulationParameters {
				p := defaults
				p.HiringsPerYear = 0
				p.Years = 5
				return p
			}(),
		},
		{
			name: "all fields",
			body: `{"years":1,"advisors":4,"policies_per_advisor_monthly":3,"average_premium":1000,"employees":7,"hirings_per_year":1,"target_growth_percent":50}`,
			want: domain.SimulationParameters{Years: 1, Advisors: 4, PoliciesPerAdvisor: 3, AveragePremium: 1000, Employees: 7, HiringsPerYear: 1, TargetGrowthPercent: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ProjectRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.Apply(defaults))
		})
	}
}
