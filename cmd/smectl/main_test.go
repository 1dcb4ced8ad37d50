package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "smechannel/pkg/contracts/api/v1"
	"smechannel/pkg/contracts/domain"
)

const policyCSV = `USGI Net Premium,Business Type Fresh Renewal,Intermediary Category,BA Name,Line of Business
"12,000",New Business,POSP,Asha,MOTOR
"8,000",Renewal,BROKER,Ravi,HEALTH
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_JSONToStdout(t *testing.T) {
	path := writeTemp(t, "policies.csv", policyCSV)

	stdout, _, err := run(t, "analyze", path)
	require.NoError(t, err)

	var snap domain.AnalysisSnapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Equal(t, 20000.0, snap.KPIs.TotalPremium)
	assert.Equal(t, 2, snap.KPIs.PolicyCount)
	assert.Equal(t, "policies.csv", snap.Meta.Source)
}

func TestAnalyze_VerboseLogsShareTraceID(t *testing.T) {
	path := writeTemp(t, "policies.csv", policyCSV)

	_, stderr, err := run(t, "-v", "analyze", path)
	require.NoError(t, err)

	var traceIDs []string
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if id, ok := entry["trace_id"].(string); ok {
			traceIDs = append(traceIDs, id)
		}
	}

	require.NotEmpty(t, traceIDs)
	for _, id := range traceIDs {
		assert.Equal(t, traceIDs[0], id)
	}
}

func TestAnalyze_CSVToFile(t *testing.T) {
	path := writeTemp(t, "policies.csv", policyCSV)
	out := filepath.Join(t.TempDir(), "summary.csv")

	stdout, _, err := run(t, "analyze", path, "--format", "csv", "--out", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "MOTOR")
}

func TestAnalyze_DirectoryPicksLatest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.csv"), []byte(policyCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("x"), 0o644))

	stdout, _, err := run(t, "analyze", dir)
	require.NoError(t, err)

	var snap domain.AnalysisSnapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Equal(t, "march.csv", snap.Meta.Source)

	_, _, err = run(t, "analyze", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no policy exports found")
}

func TestAnalyze_Errors(t *testing.T) {
	good := writeTemp(t, "policies.csv", policyCSV)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing argument",
			args:    []string{"analyze"},
			wantErr: "accepts 1 arg",
		},
		{
			name:    "unknown format",
			args:    []string{"analyze", good, "--format", "pdf"},
			wantErr: `unsupported format "pdf"`,
		},
		{
			name:    "xlsx needs out",
			args:    []string{"analyze", good, "--format", "xlsx"},
			wantErr: "xlsx output needs --out",
		},
		{
			name:    "unsupported extension",
			args:    []string{"analyze", writeTemp(t, "notes.pdf", "x")},
			wantErr: "unsupported",
		},
		{
			name:    "missing columns",
			args:    []string{"analyze", writeTemp(t, "bad.csv", "Policy No,Amount\nP1,100\n")},
			wantErr: "missing required columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProject_Defaults(t *testing.T) {
	stdout, _, err := run(t, "project")
	require.NoError(t, err)

	var resp api.ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.FromSnapshot)
	assert.Equal(t, []float64{4320000, 4536000, 4752000}, resp.Projection.Values)
	assert.Equal(t, 5184000.0, resp.Projection.TargetValue)
}

func TestProject_FromSnapshotWithOverrides(t *testing.T) {
	path := writeTemp(t, "policies.csv", policyCSV)
	snapPath := filepath.Join(t.TempDir(), "snap.json")

	_, _, err := run(t, "analyze", path, "--out", snapPath)
	require.NoError(t, err)

	stdout, _, err := run(t, "project", "--snapshot", snapPath, "--years", "2")
	require.NoError(t, err)

	var resp api.ProjectResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.FromSnapshot)
	assert.NotEmpty(t, resp.SnapshotID)
	assert.Equal(t, 2, resp.Parameters.Years)
	assert.Equal(t, 2, resp.Parameters.Advisors)
	assert.Len(t, resp.Projection.Values, 2)
}

func TestProject_InvalidFlags(t *testing.T) {
	_, _, err := run(t, "project", "--years", "51")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flags")

	_, _, err = run(t, "project", "--snapshot", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read snapshot")
}

func TestSample(t *testing.T) {
	stdout, _, err := run(t, "sample")
	require.NoError(t, err)

	var snap domain.AnalysisSnapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Equal(t, "sample", snap.Meta.Source)
	assert.Equal(t, 12, snap.KPIs.AdvisorCount)
}

func TestRoot_VersionIncludesBuildDetails(t *testing.T) {
	stdout, _, err := run(t, "--version")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "SME Channel Analyzer v1.0.0 (built: "))
	assert.Contains(t, stdout, "commit: ")
	assert.Contains(t, stdout, "go: go")
}
