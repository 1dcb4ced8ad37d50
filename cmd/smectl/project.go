package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smechannel/internal/services"
	api "smechannel/pkg/contracts/api/v1"
	"smechannel/pkg/contracts/domain"
)

// staticSnapshot serves a snapshot loaded from disk, or none
type staticSnapshot struct {
	snap *domain.AnalysisSnapshot
}

func (s staticSnapshot) Current() *domain.AnalysisSnapshot { return s.snap }

func (c *cli) projectCmd() *cobra.Command {
	var (
		snapshotPath string
		out          string

		years     int
		advisors  int
		policies  int
		premium   float64
		employees int
		hirings   int
		target    float64
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project premium growth for a hiring plan",
		Long: `Projects yearly premium from a baseline. The baseline comes from a
snapshot written by "smectl analyze --format json", or from built-in
defaults when --snapshot is omitted. Flags left unset keep the baseline
default.

Example:
  smectl analyze policies.csv --out snap.json
  smectl project --snapshot snap.json --years 5 --hirings 6 --target 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var source staticSnapshot
			if snapshotPath != "" {
				snap, err := loadSnapshot(snapshotPath)
				if err != nil {
					return err
				}
				source.snap = snap
			}

			flags := cmd.Flags()
			var req api.ProjectRequest
			if flags.Changed("years") {
				req.Years = &years
			}
			if flags.Changed("advisors") {
				req.Advisors = &advisors
			}
			if flags.Changed("policies") {
				req.PoliciesPerAdvisor = &policies
			}
			if flags.Changed("premium") {
				req.AveragePremium = &premium
			}
			if flags.Changed("employees") {
				req.Employees = &employees
			}
			if flags.Changed("hirings") {
				req.HiringsPerYear = &hirings
			}
			if flags.Changed("target") {
				req.TargetGrowthPercent = &target
			}

			resp, err := services.NewSimulationService(source, nil, c.logger).Project(cmd.Context(), req)
			if err != nil {
				if errors.Is(err, services.ErrInvalidParameters) {
					return fmt.Errorf("invalid flags: %w", err)
				}
				return err
			}

			w, err := c.output(out)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				w.Close()
				return fmt.Errorf("failed to write projection: %w", err)
			}
			return w.Close()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot JSON file to derive the baseline from")
	f.StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	f.IntVar(&years, "years", 0, "projection horizon in years (1-50)")
	f.IntVar(&advisors, "advisors", 0, "advisor ceiling")
	f.IntVar(&policies, "policies", 0, "policies per advisor per month")
	f.Float64Var(&premium, "premium", 0, "average premium per policy")
	f.IntVar(&employees, "employees", 0, "employees available as advisors")
	f.IntVar(&hirings, "hirings", 0, "hirings per year")
	f.Float64Var(&target, "target", 0, "target growth over baseline, percent (0 or more)")
	return cmd
}

func loadSnapshot(path string) (*domain.AnalysisSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap domain.AnalysisSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}
