package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/internal/shared/testutil"
)

func newValidator(t *testing.T, maxBytes int64) *FileValidator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewFileValidator(maxBytes, logger)
}

func TestFileValidator_ValidateName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{name: "csv", file: "policies.csv"},
		{name: "upper case workbook", file: "POLICIES.XLSX"},
		{name: "macro workbook", file: "dir/report.xlsm"},
		{name: "plain text export", file: "export.txt"},
		{name: "legacy xls", file: "old.xls", wantErr: ErrUnsupportedExtension},
		{name: "pdf", file: "policies.pdf", wantErr: ErrUnsupportedExtension},
		{name: "no extension", file: "policies", wantErr: ErrUnsupportedExtension},
		{name: "lock file", file: "~$policies.xlsx", wantErr: ErrTemporaryFile},
	}

	v := newValidator(t, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateName(tt.file)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	v := newValidator(t, 100)

	assert.NoError(t, v.ValidateUpload("a.csv", 100))
	assert.ErrorIs(t, v.ValidateUpload("a.csv", 101), ErrFileTooLarge)
	assert.ErrorIs(t, v.ValidateUpload("a.csv", 0), ErrEmptyFile)
	assert.ErrorIs(t, v.ValidateUpload("a.doc", 10), ErrUnsupportedExtension)

	assert.NoError(t, newValidator(t, 0).ValidateSize("big.csv", 1<<40), "zero limit disables the check")
	assert.Equal(t, int64(100), v.MaxBytes())
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "policies.csv")
	require.NoError(t, os.WriteFile(good, []byte("BA NAME,LOB\n"), 0644))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.csv"), 0755))

	v := newValidator(t, 1<<20)

	assert.NoError(t, v.ValidateInputFile(good))
	assert.ErrorIs(t, v.ValidateInputFile(empty), ErrEmptyFile)

	err := v.ValidateInputFile(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	err = v.ValidateInputFile(filepath.Join(dir, "folder.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newValidator(t, 0)
	dir := filepath.Join(t.TempDir(), "exports", "nested")

	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".write_test"), "probe file must be removed")
	}
}
