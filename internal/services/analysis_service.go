package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smechannel/internal/dataprocessing"
	apierrors "smechannel/internal/errors"
	"smechannel/internal/exporter"
	"smechannel/internal/infrastructure"
	"smechannel/pkg/contracts/domain"
	"smechannel/pkg/contracts/events"
)

// SampleSource is the source name recorded for the built-in sample dataset
const SampleSource = "sample"

// Notifier receives snapshot lifecycle events
type Notifier interface {
	Broadcast(ctx context.Context, messageType events.MessageType, data interface{})
}

// SnapshotWriter renders a snapshot in one of the export formats
type SnapshotWriter interface {
	Write(ctx context.Context, w io.Writer, snap *domain.AnalysisSnapshot, format exporter.Format) error
	Filename(format exporter.Format) string
}

// ExportResult is a fully rendered export ready to be served
type ExportResult struct {
	Format      exporter.Format
	ContentType string
	Filename    string
	Data        []byte
}

// AnalysisService ingests policy exports and holds the current snapshot
type AnalysisService struct {
	pipeline *dataprocessing.Pipeline
	writer   SnapshotWriter
	notifier Notifier
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	logger   *slog.Logger

	current atomic.Pointer[domain.AnalysisSnapshot]
}

// NewAnalysisService creates the analysis service. notifier and metrics may be nil.
func NewAnalysisService(pipeline *dataprocessing.Pipeline, writer SnapshotWriter, notifier Notifier, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = dataprocessing.NewPipeline(logger)
	}
	return &AnalysisService{
		pipeline: pipeline,
		writer:   writer,
		notifier: notifier,
		metrics:  metrics,
		tracer:   otel.Tracer("smechannel/services"),
		logger:   logger.With(slog.String("service", "analysis")),
	}
}

// Ingest decodes r, picking CSV or workbook decoding from the extension of
// name, and replaces the current snapshot on success.
func (s *AnalysisService) Ingest(ctx context.Context, name string, r io.Reader) (*domain.AnalysisSnapshot, error) {
	format := string(dataprocessing.DetectFormat(name))
	return s.run(ctx, name, format, func(ctx context.Context) (*domain.AnalysisSnapshot, error) {
		return s.pipeline.Ingest(ctx, name, r)
	})
}

// IngestFile analyzes a file on disk
func (s *AnalysisService) IngestFile(ctx context.Context, path string) (*domain.AnalysisSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open input file", err).WithContext("path", path)
	}
	defer f.Close()

	return s.Ingest(ctx, filepath.Base(path), f)
}

// LoadSample replaces the current snapshot with one built from the sample dataset
func (s *AnalysisService) LoadSample(ctx context.Context) (*domain.AnalysisSnapshot, error) {
	return s.run(ctx, SampleSource, SampleSource, func(ctx context.Context) (*domain.AnalysisSnapshot, error) {
		return s.pipeline.IngestGrid(ctx, SampleSource, dataprocessing.SampleGrid())
	})
}

func (s *AnalysisService) run(ctx context.Context, source, format string, ingest func(context.Context) (*domain.AnalysisSnapshot, error)) (*domain.AnalysisSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.ingest", trace.WithAttributes(
		attribute.String("ingest.source", source),
		attribute.String("ingest.format", format),
	))
	defer span.End()

	start := time.Now()
	snap, err := ingest(ctx)

	outcome := infrastructure.IngestionOutcome{
		Format:   format,
		Source:   sourceKind(source),
		Duration: time.Since(start),
		Err:      err,
	}

	if err != nil {
		var schemaErr *dataprocessing.SchemaError
		outcome.SchemaError = errors.As(err, &schemaErr)
		infrastructure.RecordIngestion(ctx, s.metrics, outcome)
		return nil, s.fail(ctx, source, err, schemaErr)
	}

	outcome.Records = snap.KPIs.TotalRows
	outcome.Fallback = snap.Meta.HasCondition(domain.ConditionEmptyActiveSet)
	for _, c := range snap.Meta.Conditions {
		if c.Code == domain.ConditionNumericCoercion {
			outcome.CoercedCells += c.Count
		}
	}
	infrastructure.RecordIngestion(ctx, s.metrics, outcome)

	previous := s.current.Swap(snap)

	attrs := []any{
		slog.String("snapshot_id", snap.ID),
		slog.String("source", source),
		slog.Int("total_rows", snap.KPIs.TotalRows),
		slog.Int("active_rows", snap.KPIs.ActiveRows),
		slog.Int("policy_count", snap.KPIs.PolicyCount),
		slog.Float64("total_premium", snap.KPIs.TotalPremium),
		slog.Duration("duration", outcome.Duration),
	}
	if previous != nil {
		attrs = append(attrs, slog.String("replaced_snapshot_id", previous.ID))
	}
	s.logger.InfoContext(ctx, "Snapshot replaced", attrs...)

	if s.notifier != nil {
		s.notifier.Broadcast(ctx, events.MessageTypeSnapshotReplaced, events.SnapshotReplacedEvent{
			SnapshotID:   snap.ID,
			Source:       source,
			TotalPremium: snap.KPIs.TotalPremium,
			PolicyCount:  snap.KPIs.PolicyCount,
			Warning:      snap.Meta.Warning,
			GeneratedAt:  snap.Meta.GeneratedAt,
		})
	}

	return snap, nil
}

// fail logs and broadcasts a failed ingestion. Decoder failures are wrapped
// as parsing errors and binding failures as schema errors; context errors
// pass through unchanged.
func (s *AnalysisService) fail(ctx context.Context, source string, err error, schemaErr *dataprocessing.SchemaError) error {
	event := events.IngestionFailedEvent{Source: source, Message: err.Error()}

	switch {
	case schemaErr != nil:
		event.Code = "SCHEMA_ERROR"
		event.MissingFields = schemaErr.MissingNames()
		err = apierrors.NewSchemaError("required columns could not be bound", err).
			WithContext("source", source).
			WithContext("missing_fields", event.MissingFields)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		event.Code = "CANCELLED"
	default:
		event.Code = string(apierrors.ErrTypeParsing)
		err = apierrors.NewParsingError("the file could not be read as CSV or Excel", err).WithContext("source", source)
	}

	infrastructure.WithError(s.logger, err).WarnContext(ctx, "Ingestion failed, keeping previous snapshot",
		slog.String("source", source),
		slog.String("code", event.Code),
		slog.Bool("has_snapshot", s.current.Load() != nil))

	if s.notifier != nil {
		s.notifier.Broadcast(ctx, events.MessageTypeIngestionFailed, event)
	}
	return err
}

// Snapshot returns the current snapshot or ErrNoSnapshot
func (s *AnalysisService) Snapshot() (*domain.AnalysisSnapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Current returns the current snapshot, nil before the first ingestion
func (s *AnalysisService) Current() *domain.AnalysisSnapshot {
	return s.current.Load()
}

// Export renders the current snapshot in memory. An empty format name means JSON.
func (s *AnalysisService) Export(ctx context.Context, formatName string) (*ExportResult, error) {
	format := exporter.FormatJSON
	if formatName != "" {
		f, ok := exporter.ParseFormat(formatName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, formatName)
		}
		format = f
	}

	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if s.writer == nil {
		return nil, apierrors.NewExportError("no exporter configured", nil)
	}

	ctx, span := s.tracer.Start(ctx, "analysis.export", trace.WithAttributes(
		attribute.String("export.format", string(format)),
		attribute.String("snapshot.id", snap.ID),
	))
	defer span.End()

	var buf bytes.Buffer
	if err := s.writer.Write(ctx, &buf, snap, format); err != nil {
		infrastructure.RecordError(ctx, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apierrors.NewExportError("failed to render export", err).WithContext("format", string(format))
	}

	infrastructure.RecordExport(ctx, s.metrics, string(format))
	s.logger.InfoContext(ctx, "Snapshot exported",
		slog.String("snapshot_id", snap.ID),
		slog.String("format", string(format)),
		slog.Int("bytes", buf.Len()))

	return &ExportResult{
		Format:      format,
		ContentType: format.ContentType(),
		Filename:    s.writer.Filename(format),
		Data:        buf.Bytes(),
	}, nil
}

// sourceKind keeps metric label cardinality bounded
func sourceKind(source string) string {
	if source == SampleSource {
		return SampleSource
	}
	return "upload"
}
