package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smechannel/internal/config"
	"smechannel/internal/infrastructure"
	"smechannel/pkg/contracts/domain"
)

// ErrNilSnapshot is returned when there is nothing to export
var ErrNilSnapshot = errors.New("snapshot is nil")

// Exporter renders snapshots in every supported format
type Exporter struct {
	paths  config.PathsConfig
	csv    *CSVWriter
	xlsx   *XLSXWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates an exporter writing files under paths.ExportDir
func NewExporter(paths config.PathsConfig, logger *slog.Logger) *Exporter {
	return &Exporter{
		paths:  paths,
		csv:    NewCSVWriter(),
		xlsx:   NewXLSXWriter(),
		logger: infrastructure.ComponentLogger(logger, "exporter"),
		now:    time.Now,
	}
}

// Write renders snap to w in the given format
func (e *Exporter) Write(ctx context.Context, w io.Writer, snap *domain.AnalysisSnapshot, format Format) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(snap)
	case FormatCSV:
		err = e.csv.WriteTables(w, Tables(snap))
	case FormatXLSX:
		err = e.xlsx.WriteTables(w, Tables(snap))
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	e.logger.DebugContext(ctx, "snapshot exported",
		slog.String("snapshot_id", snap.ID),
		slog.String("format", string(format)),
	)
	return nil
}

// Filename is the download name for a snapshot exported at the given time
func (e *Exporter) Filename(format Format) string {
	return filepath.Base(e.paths.ExportPath(format.Extension(), e.now()))
}

// SaveFile writes the export into the export directory and returns its path
func (e *Exporter) SaveFile(ctx context.Context, snap *domain.AnalysisSnapshot, format Format) (string, error) {
	path := e.paths.ExportPath(format.Extension(), e.now())
	return path, e.WriteFile(ctx, path, snap, format)
}

// WriteFile writes the export to an explicit path, creating parent directories
func (e *Exporter) WriteFile(ctx context.Context, path string, snap *domain.AnalysisSnapshot, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Write(ctx, file, snap, format); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	e.logger.InfoContext(ctx, "export written",
		slog.String("path", path),
		slog.String("format", string(format)),
	)
	return nil
}
