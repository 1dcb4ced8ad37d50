package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smechannel/internal/config"
	"smechannel/internal/shared/testutil"
	"smechannel/pkg/contracts/domain"
)

func fixtureSnapshot() *domain.AnalysisSnapshot {
	return &domain.AnalysisSnapshot{
		ID: "snap-1",
		KPIs: domain.KPIs{
			TotalPremium:          150000,
			PolicyCount:           12,
			AvgPremiumPerPolicy:   12500,
			AdvisorCount:          3,
			PoliciesPerAdvisorAvg: 4,
			UsedRows:              12,
			ActiveRows:            12,
			TotalRows:             14,
		},
		Category: []domain.GroupSummary{
			{Key: "POSP", Sum: 90000, Count: 7, Mean: 12857.142857},
			{Key: "AGENCY", Sum: 60000, Count: 5, Mean: 12000},
		},
		LineOfBusiness: []domain.GroupSummary{
			{Key: "FIRE", Sum: 150000, Count: 12, Mean: 12500},
		},
		PremiumBanding: []domain.GroupSummary{
			{Key: domain.BandVeryLow, Sum: 10000, Count: 3, Mean: 3333.333333},
			{Key: domain.BandVeryHigh, Sum: 140000, Count: 9, Mean: 15555.555556},
		},
		PremiumThresholds: &domain.BandThresholds{P20: 4000, P40: 8000, P60: 12000, P80: 16000},
		TopAdvisors: []domain.AdvisorSummary{
			{Name: "Asha", Policies: 6, NetPremium: 80000, AvgPremium: 13333.333333},
			{Name: "Ravi, Jr.", Policies: 6, NetPremium: 70000, AvgPremium: 11666.666667},
		},
		Meta: domain.SnapshotMeta{
			Source:          "policies.csv",
			HeaderRowIndex:  2,
			DetectedColumns: map[domain.Field]string{domain.FieldPremium: "USGI NET PREMIUM", domain.FieldAdvisor: "BA NAME"},
			Conditions: []domain.Condition{
				{Code: domain.ConditionOptionalColumnMissing, Message: "MONTH column not found", Field: domain.FieldMonth},
			},
			GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	exp := NewExporter(config.PathsConfig{ExportDir: filepath.Join(t.TempDir(), "exports")}, logger)
	exp.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC) }
	return exp
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"json", FormatJSON, true},
		{" CSV ", FormatCSV, true},
		{"Xlsx", FormatXLSX, true},
		{"pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "13.40", formatCell(13.4))
	assert.Equal(t, "42", formatCell(42))
	assert.Equal(t, "POSP", formatCell("POSP"))
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "true", formatCell(true))
}

func TestTables(t *testing.T) {
	tables := Tables(fixtureSnapshot())

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
		assert.LessOrEqual(t, len(tb.Name), 31, "sheet name too long: %s", tb.Name)
	}
	assert.Equal(t, []string{TableSummary, TableCategory, TableLOB, TableBanding, TableTopAdvisors, TableIngestionLog}, names)

	summary := tables[0]
	assert.Equal(t, []interface{}{"Total USGI Net Premium", 150000.0}, summary.Rows[0])
	assert.Len(t, summary.Rows, 12, "8 KPIs plus 4 thresholds")

	advisors := tables[4]
	assert.Equal(t, []interface{}{1, "Asha", 6, 80000.0, 13333.333333}, advisors.Rows[0])

	meta := tables[5]
	assert.Contains(t, meta.Rows, []interface{}{"Header Row", 3})
	assert.Contains(t, meta.Rows, []interface{}{"Column ADVISOR", "BA NAME"})
}

func TestTables_BandingSkipped(t *testing.T) {
	snap := fixtureSnapshot()
	snap.PremiumBanding = nil
	snap.PremiumThresholds = nil

	tables := Tables(snap)
	assert.Empty(t, tables[3].Rows)
	assert.Len(t, tables[0].Rows, 8)
}

func TestExporter_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Write(context.Background(), &buf, fixtureSnapshot(), FormatJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "snap-1", decoded["id"])
	kpis := decoded["kpis"].(map[string]interface{})
	assert.Equal(t, 150000.0, kpis["total_usgi_net_premium"])
}

func TestExporter_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Write(context.Background(), &buf, fixtureSnapshot(), FormatCSV))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "csv must start with a BOM")

	r := csv.NewReader(bytes.NewReader(data[len(utf8BOM):]))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{TableSummary}, records[0])
	assert.Equal(t, []string{"Metric", "Value"}, records[1])
	assert.Equal(t, []string{"Total USGI Net Premium", "150000.00"}, records[2])

	text := string(data)
	assert.Contains(t, text, "\n\nIntermediary Category\n")
	assert.Contains(t, text, `2,"Ravi, Jr.",6,70000.00,11666.67`)
}

func TestExporter_WriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Write(context.Background(), &buf, fixtureSnapshot(), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{TableSummary, TableCategory, TableLOB, TableBanding, TableTopAdvisors, TableIngestionLog}, f.GetSheetList())

	rows, err := f.GetRows(TableTopAdvisors)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "Advisor", "Policies", "Net Premium", "Avg Premium"}, rows[0])
	assert.Equal(t, "Ravi, Jr.", rows[2][1])

	raw, err := f.GetCellValue(TableSummary, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "150000", raw)
}

func TestExporter_WriteErrors(t *testing.T) {
	exp := newTestExporter(t)
	var buf bytes.Buffer

	assert.ErrorIs(t, exp.Write(context.Background(), &buf, nil, FormatJSON), ErrNilSnapshot)
	assert.Error(t, exp.Write(context.Background(), &buf, fixtureSnapshot(), Format("pdf")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, exp.Write(ctx, &buf, fixtureSnapshot(), FormatCSV), context.Canceled)
}

func TestExporter_SaveFile(t *testing.T) {
	exp := newTestExporter(t)

	path, err := exp.SaveFile(context.Background(), fixtureSnapshot(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sme_analysis_20260301_093015.csv", filepath.Base(path))
	assert.Equal(t, "sme_analysis_20260301_093015.xlsx", exp.Filename(FormatXLSX))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "Top Advisors"))
}

func TestExporter_WriteFileRemovesPartialOutput(t *testing.T) {
	exp := newTestExporter(t)
	path := filepath.Join(t.TempDir(), "out", "broken.json")

	err := exp.WriteFile(context.Background(), path, nil, FormatJSON)
	require.ErrorIs(t, err, ErrNilSnapshot)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
