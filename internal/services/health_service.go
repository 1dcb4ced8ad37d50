package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"smechannel/internal/config"
	"smechannel/pkg/contracts"
)

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	info      contracts.VersionInfo
	paths     config.PathsConfig
	snapshots SnapshotSource
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. snapshots and hub may be nil.
func NewHealthService(info contracts.VersionInfo, paths config.PathsConfig, snapshots SnapshotSource, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", info.Version),
		slog.String("build_time", info.BuildTime),
		slog.String("git_commit", info.GitCommit))

	return &HealthService{
		info:      info,
		paths:     paths,
		snapshots: snapshots,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck returns readiness status. A missing snapshot is reported
// but does not make the service unready: uploads are how one gets loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
		Services:  make(map[string]interface{}),
	}

	status.Services["snapshot"] = hs.checkSnapshotHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()
	status.Services["exports"] = hs.checkExportHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":      hs.info.Version,
		"api_version":  hs.info.APIVersion,
		"data_format":  hs.info.DataFormat,
		"build_time":   hs.info.BuildTime,
		"git_commit":   hs.info.GitCommit,
		"git_branch":   hs.info.GitBranch,
		"go_version":   hs.info.GoVersion,
		"os":           hs.info.OS,
		"arch":         hs.info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkSnapshotHealth() ServiceHealth {
	if hs.snapshots == nil {
		return ServiceHealth{Status: "ready", Message: "No snapshot source configured"}
	}
	snap := hs.snapshots.Current()
	if snap == nil {
		return ServiceHealth{Status: "empty", Message: "No analysis snapshot loaded"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("Snapshot %s loaded from %s", snap.ID, snap.Meta.Source),
		Uptime:  time.Since(snap.Meta.GeneratedAt).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "WebSocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d client(s) connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkExportHealth verifies the export directory is writable
func (hs *HealthService) checkExportHealth() ServiceHealth {
	dir := hs.paths.ExportDir
	if dir == "" {
		return ServiceHealth{Status: "ready", Message: "Exports are served in memory only"}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot create export directory: %v", err),
		}
	}

	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to export directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: "ready", Message: "Export directory writable: " + filepath.Clean(dir)}
}
