package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"smechannel/pkg/contracts/domain"
)

// Pipeline runs one ingestion pass: header resolution, row normalization
// and aggregation. Each call produces a new snapshot and shares no state
// with earlier calls.
type Pipeline struct {
	resolver   *SchemaResolver
	normalizer *RowNormalizer
	aggregator *Aggregator
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline creates an ingestion pipeline with default components
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:   NewSchemaResolver(logger),
		normalizer: NewRowNormalizer(logger),
		aggregator: NewAggregator(logger),
		logger:     logger.With(slog.String("component", "pipeline")),
		now:        time.Now,
	}
}

// Ingest decodes r according to the extension of name and analyzes it
func (p *Pipeline) Ingest(ctx context.Context, name string, r io.Reader) (*domain.AnalysisSnapshot, error) {
	switch DetectFormat(name) {
	case FormatWorkbook:
		return p.IngestWorkbook(ctx, name, r)
	default:
		return p.IngestCSV(ctx, name, r)
	}
}

// IngestFile analyzes a CSV or workbook file on disk
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*domain.AnalysisSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return p.Ingest(ctx, filepath.Base(path), f)
}

// IngestCSV tokenizes CSV text and analyzes it
func (p *Pipeline) IngestCSV(ctx context.Context, source string, r io.Reader) (*domain.AnalysisSnapshot, error) {
	grid, err := ParseCSVReader(r)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "csv decoded",
		slog.String("source", source),
		slog.Int("rows", len(grid)))
	return p.IngestGrid(ctx, source, grid)
}

// IngestWorkbook reads the first sheet of a workbook and analyzes it
func (p *Pipeline) IngestWorkbook(ctx context.Context, source string, r io.Reader) (*domain.AnalysisSnapshot, error) {
	grid, sheet, err := ReadWorkbook(r)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "workbook decoded",
		slog.String("source", source),
		slog.String("sheet", sheet),
		slog.Int("rows", len(grid)))
	return p.IngestGrid(ctx, source, grid)
}

// IngestGrid analyzes an already decoded grid. A *SchemaError is returned
// when required fields cannot be bound; no records are normalized then.
func (p *Pipeline) IngestGrid(ctx context.Context, source string, grid domain.RawGrid) (*domain.AnalysisSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := p.resolver.Resolve(grid)
	if err != nil {
		p.logger.WarnContext(ctx, "header binding failed",
			slog.String("source", source),
			slog.Int("header_row_index", schema.HeaderRowIndex),
			slog.String("error", err.Error()))
		return nil, err
	}

	var conditions []domain.Condition
	if !schema.Detected {
		conditions = append(conditions, domain.Condition{
			Code:    domain.ConditionHeaderNotDetected,
			Message: "No header row matched the expected labels; row 1 used as header.",
		})
	}
	for _, f := range domain.AllFields {
		if f.IsRequired() {
			continue
		}
		if _, ok := schema.Binding[f]; !ok {
			conditions = append(conditions, domain.Condition{
				Code:    domain.ConditionOptionalColumnMissing,
				Message: fmt.Sprintf("Optional column %s not found; values defaulted.", f.DisplayName()),
				Field:   f,
			})
		}
	}

	normalized := p.normalizer.Normalize(grid, schema)
	if normalized.CoercedCells > 0 {
		conditions = append(conditions, domain.Condition{
			Code:    domain.ConditionNumericCoercion,
			Message: "Non-numeric premium values were treated as 0.",
			Field:   domain.FieldPremium,
			Count:   normalized.CoercedCells,
		})
	}

	snapshot := p.aggregator.Snapshot(normalized.Records, domain.SnapshotMeta{
		Source:          source,
		HeaderRowIndex:  schema.HeaderRowIndex,
		Headers:         schema.Headers,
		DetectedColumns: schema.Binding.Labels(),
		Conditions:      conditions,
		GeneratedAt:     p.now().UTC(),
	})
	snapshot.ID = uuid.New().String()

	p.logger.InfoContext(ctx, "snapshot built",
		slog.String("snapshot_id", snapshot.ID),
		slog.String("source", source),
		slog.Int("header_row_index", schema.HeaderRowIndex),
		slog.Int("total_rows", snapshot.KPIs.TotalRows),
		slog.Int("active_rows", snapshot.KPIs.ActiveRows),
		slog.Int("used_rows", snapshot.KPIs.UsedRows),
		slog.Bool("fallback", snapshot.Meta.Warning != ""))

	return snapshot, nil
}
