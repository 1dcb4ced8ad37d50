package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "smechannel-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	RecordIngestion(context.Background(), metrics, IngestionOutcome{Format: "csv", Source: "upload", Records: 60, Duration: time.Millisecond})

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ingestions_total")
	assert.Contains(t, rec.Body.String(), "records_ingested_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "smechannel-test",
		TraceExporter:  "stdout",
		MetricExporter: "none",
		SampleRatio:    1,
		TraceWriter:    io.Discard,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.TracerProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	ctx, span := otel.Tracer("test").Start(context.Background(), "ingest")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, traceID, GetTraceID(ctx), "span trace id is the logging fallback")
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, quietLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{MetricExporter: "statsd"}, quietLogger())
	assert.Error(t, err)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordIngestion(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	RecordIngestion(ctx, metrics, IngestionOutcome{Format: "csv", Source: "upload", Records: 10, CoercedCells: 2, Fallback: true})
	RecordIngestion(ctx, metrics, IngestionOutcome{Format: "xlsx", Source: "upload", Records: 5})
	RecordIngestion(ctx, metrics, IngestionOutcome{Format: "csv", Source: "upload", SchemaError: true, Err: errors.New("missing")})
	RecordExport(ctx, metrics, "xlsx")
	RecordProjection(ctx, metrics, 3, false)
	RecordWebSocketClientChange(ctx, metrics, 1)
	RecordWebSocketClientChange(ctx, metrics, 1)
	RecordWebSocketClientChange(ctx, metrics, -1)
	RecordBroadcast(ctx, metrics, "snapshot:replaced")

	got := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(t, got["ingestions_total"]))
	assert.Equal(t, int64(15), sumOf(t, got["records_ingested_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["schema_errors_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["active_set_fallbacks_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["numeric_coercions_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["exports_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["projections_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["websocket_clients"]))
	assert.Equal(t, int64(1), sumOf(t, got["websocket_broadcasts_total"]))
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordIngestion(ctx, nil, IngestionOutcome{})
		RecordExport(ctx, nil, "csv")
		RecordProjection(ctx, nil, 1, true)
		RecordWebSocketClientChange(ctx, nil, 1)
		RecordBroadcast(ctx, nil, "x")
	})
}

func TestCreateBusinessMetrics_NilMeter(t *testing.T) {
	metrics, err := CreateBusinessMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics.HTTPRequestsTotal)
}
