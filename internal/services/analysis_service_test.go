package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/internal/config"
	"smechannel/internal/dataprocessing"
	apierrors "smechannel/internal/errors"
	"smechannel/internal/exporter"
	"smechannel/internal/shared/testutil"
	"smechannel/pkg/contracts/domain"
	"smechannel/pkg/contracts/events"
)

const policyCSV = `USGI Net Premium,Business Type Fresh Renewal,Intermediary Category,BA Name,Line of Business
"12,000",New Business,POSP,Asha,MOTOR
"8,000",Renewal,BROKER,Ravi,HEALTH
500,Cancelled,POSP,Asha,MOTOR
`

const noAdvisorCSV = `USGI Net Premium,Business Type,Line of Business,Intermediary Category
100,NEW,MOTOR,POSP
`

type notification struct {
	Type events.MessageType
	Data interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Broadcast(_ context.Context, messageType events.MessageType, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Type: messageType, Data: data})
}

func (n *recordingNotifier) last(t *testing.T) notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no notification sent")
	return n.sent[len(n.sent)-1]
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, io.Writer, *domain.AnalysisSnapshot, exporter.Format) error {
	return errors.New("disk on fire")
}

func (failingWriter) Filename(f exporter.Format) string { return "x." + f.Extension() }

func newAnalysisService(t *testing.T) (*AnalysisService, *recordingNotifier, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	notifier := &recordingNotifier{}
	writer := exporter.NewExporter(config.PathsConfig{ExportDir: t.TempDir()}, logger)
	return NewAnalysisService(dataprocessing.NewPipeline(logger), writer, notifier, nil, logger), notifier, logs
}

func TestAnalysisService_NoSnapshotInitially(t *testing.T) {
	svc, _, _ := newAnalysisService(t)

	snap, err := svc.Snapshot()
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Nil(t, svc.Current())

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type)

	_, err = svc.Export(context.Background(), "csv")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestAnalysisService_IngestReplacesSnapshot(t *testing.T) {
	svc, notifier, logs := newAnalysisService(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "export.csv", strings.NewReader(policyCSV))
	require.NoError(t, err)
	assert.Equal(t, 20000.0, first.KPIs.TotalPremium)
	assert.Equal(t, "export.csv", first.Meta.Source)
	assert.Same(t, first, svc.Current())

	msg := notifier.last(t)
	assert.Equal(t, events.MessageTypeSnapshotReplaced, msg.Type)
	replaced := msg.Data.(events.SnapshotReplacedEvent)
	assert.Equal(t, first.ID, replaced.SnapshotID)
	assert.Equal(t, 2, replaced.PolicyCount)

	second, err := svc.LoadSample(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, SampleSource, second.Meta.Source)

	current, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Same(t, second, current)

	assert.True(t, logs.ContainsAttr("replaced_snapshot_id", first.ID))
}

func TestAnalysisService_FailedIngestKeepsPrevious(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		wantCode string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing required column",
			file:     "no_advisor.csv",
			body:     noAdvisorCSV,
			wantCode: "SCHEMA_ERROR",
			check: func(t *testing.T, err error) {
				var schemaErr *dataprocessing.SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.Equal(t, []domain.Field{domain.FieldAdvisor}, schemaErr.Missing)

				var appErr *apierrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apierrors.ErrTypeSchema, appErr.Type)
				assert.Equal(t, "no_advisor.csv", appErr.Context["source"])
			},
		},
		{
			name:     "corrupt workbook",
			file:     "broken.xlsx",
			body:     "this is not a zip archive",
			wantCode: string(apierrors.ErrTypeParsing),
			check: func(t *testing.T, err error) {
				var appErr *apierrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apierrors.ErrTypeParsing, appErr.Type)
				assert.Equal(t, "broken.xlsx", appErr.Context["source"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, notifier, logs := newAnalysisService(t)
			ctx := context.Background()

			good, err := svc.LoadSample(ctx)
			require.NoError(t, err)

			snap, err := svc.Ingest(ctx, tt.file, strings.NewReader(tt.body))
			assert.Nil(t, snap)
			require.Error(t, err)
			tt.check(t, err)

			assert.Same(t, good, svc.Current(), "previous snapshot must survive a failed ingestion")

			msg := notifier.last(t)
			assert.Equal(t, events.MessageTypeIngestionFailed, msg.Type)
			failed := msg.Data.(events.IngestionFailedEvent)
			assert.Equal(t, tt.wantCode, failed.Code)
			assert.Equal(t, tt.file, failed.Source)

			assert.True(t, logs.ContainsMessage("Ingestion failed, keeping previous snapshot"))
		})
	}
}

func TestAnalysisService_SchemaErrorListsMissingFields(t *testing.T) {
	svc, notifier, _ := newAnalysisService(t)

	_, err := svc.Ingest(context.Background(), "no_advisor.csv", strings.NewReader(noAdvisorCSV))
	require.Error(t, err)

	failed := notifier.last(t).Data.(events.IngestionFailedEvent)
	assert.Equal(t, []string{domain.FieldAdvisor.DisplayName()}, failed.MissingFields)
}

func TestAnalysisService_CancelledIngest(t *testing.T) {
	svc, notifier, _ := newAnalysisService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, "export.csv", strings.NewReader(policyCSV))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, svc.Current())
	assert.Equal(t, "CANCELLED", notifier.last(t).Data.(events.IngestionFailedEvent).Code)
}

func TestAnalysisService_Export(t *testing.T) {
	svc, _, _ := newAnalysisService(t)
	ctx := context.Background()
	snap, err := svc.Ingest(ctx, "export.csv", strings.NewReader(policyCSV))
	require.NoError(t, err)

	tests := []struct {
		name        string
		format      string
		wantFormat  exporter.Format
		contentType string
	}{
		{name: "default is json", format: "", wantFormat: exporter.FormatJSON, contentType: "application/json"},
		{name: "csv", format: "csv", wantFormat: exporter.FormatCSV, contentType: "text/csv; charset=utf-8"},
		{name: "xlsx upper case", format: "XLSX", wantFormat: exporter.FormatXLSX, contentType: exporter.FormatXLSX.ContentType()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Export(ctx, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, result.Format)
			assert.Equal(t, tt.contentType, result.ContentType)
			assert.True(t, strings.HasPrefix(result.Filename, "sme_analysis_"))
			assert.True(t, strings.HasSuffix(result.Filename, "."+tt.wantFormat.Extension()))
			assert.NotEmpty(t, result.Data)
		})
	}

	t.Run("json round trips the snapshot", func(t *testing.T) {
		result, err := svc.Export(ctx, "json")
		require.NoError(t, err)
		var decoded domain.AnalysisSnapshot
		require.NoError(t, json.Unmarshal(result.Data, &decoded))
		assert.Equal(t, snap.ID, decoded.ID)
		assert.Equal(t, snap.KPIs, decoded.KPIs)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Export(ctx, "pdf")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestAnalysisService_ExportWriterFailure(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAnalysisService(nil, failingWriter{}, nil, nil, logger)
	_, err := svc.LoadSample(context.Background())
	require.NoError(t, err)

	_, err = svc.Export(context.Background(), "csv")
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeExport, appErr.Type)
}

func TestAnalysisService_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	svc, _, _ := newAnalysisService(t)
	ctx := context.Background()
	_, err := svc.LoadSample(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Ingest(ctx, "export.csv", strings.NewReader(policyCSV))
		}()
		go func() {
			defer wg.Done()
			snap, err := svc.Snapshot()
			if assert.NoError(t, err) {
				assert.NotEmpty(t, snap.ID)
				assert.NotEmpty(t, snap.Meta.Source)
			}
		}()
	}
	wg.Wait()
}
