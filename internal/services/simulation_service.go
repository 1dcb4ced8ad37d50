package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	apierrors "smechannel/internal/errors"
	"smechannel/internal/infrastructure"
	"smechannel/internal/middleware"
	"smechannel/internal/projection"
	api "smechannel/pkg/contracts/api/v1"
	"smechannel/pkg/contracts/domain"
)

// SnapshotSource exposes the current snapshot, nil when none is loaded
type SnapshotSource interface {
	Current() *domain.AnalysisSnapshot
}

// SimulationService computes baselines and projections
type SimulationService struct {
	snapshots SnapshotSource
	validate  *validator.Validate
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewSimulationService creates a simulation service. snapshots may be nil,
// in which case every projection starts from the default baseline.
func NewSimulationService(snapshots SnapshotSource, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SimulationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationService{
		snapshots: snapshots,
		validate:  middleware.NewValidator(),
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "simulation")),
	}
}

func (s *SimulationService) current() *domain.AnalysisSnapshot {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Current()
}

// Baseline derives slider defaults and bounds from the current snapshot
func (s *SimulationService) Baseline(ctx context.Context) domain.Baseline {
	b := projection.DeriveBaseline(s.current())
	s.logger.DebugContext(ctx, "Baseline derived",
		slog.Bool("from_snapshot", b.FromSnapshot),
		slog.Int("advisors", b.Advisors),
		slog.Int("policies_per_advisor", b.PoliciesPerAdvisor),
		slog.Float64("average_premium", b.AveragePremium))
	return b
}

// Project runs the projection engine. Fields missing from req take the
// baseline defaults.
func (s *SimulationService) Project(ctx context.Context, req api.ProjectRequest) (*api.ProjectResponse, error) {
	baseline := projection.DeriveBaseline(s.current())
	params := req.Apply(baseline.Defaults)

	if err := s.validate.Struct(params); err != nil {
		s.logger.WarnContext(ctx, "Rejected simulation parameters",
			slog.String("error", err.Error()))
		return nil, apierrors.NewAppValidationError("simulation parameters out of range",
			fmt.Errorf("%w: %v", ErrInvalidParameters, err)).
			WithContext("fields", invalidFields(err))
	}

	result := projection.Project(baseline, params)
	infrastructure.RecordProjection(ctx, s.metrics, params.Years, baseline.FromSnapshot)

	s.logger.InfoContext(ctx, "Projection computed",
		slog.Int("years", params.Years),
		slog.Int("advisors", params.Advisors),
		slog.Bool("from_snapshot", baseline.FromSnapshot),
		slog.Float64("target_value", result.TargetValue))

	return &api.ProjectResponse{
		Parameters:            params,
		Projection:            result,
		BaselineAnnualPremium: projection.BaselineAnnualPremium(baseline),
		FromSnapshot:          baseline.FromSnapshot,
		SnapshotID:            baseline.SnapshotID,
	}, nil
}

// invalidFields lists the json names of the parameters that failed validation
func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
