package http

import (
	"context"
	"io"

	"smechannel/internal/services"
	api "smechannel/pkg/contracts/api/v1"
	"smechannel/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the snapshot operations used by the handlers
type AnalysisServiceInterface interface {
	Ingest(ctx context.Context, name string, r io.Reader) (*domain.AnalysisSnapshot, error)
	LoadSample(ctx context.Context) (*domain.AnalysisSnapshot, error)
	Snapshot() (*domain.AnalysisSnapshot, error)
	Export(ctx context.Context, format string) (*services.ExportResult, error)
}

// SimulationServiceInterface defines the projection operations
type SimulationServiceInterface interface {
	Baseline(ctx context.Context) domain.Baseline
	Project(ctx context.Context, req api.ProjectRequest) (*api.ProjectResponse, error)
}

// HealthServiceInterface defines the health and version operations
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// HubStats exposes websocket hub counters
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}
