package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecutableDir returns the directory containing the running binary with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// EnsureDirectories creates the data, export and log directories
func (p PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExportPath returns a timestamped file path inside ExportDir, e.g.
// data/exports/sme_analysis_20250102_150405.xlsx
func (p PathsConfig) ExportPath(ext string, at time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("sme_analysis_%s.%s", at.Format("20060102_150405"), ext)
	return filepath.Join(p.ExportDir, name)
}

// LogPathResolution logs the resolved directories for debugging
func (p PathsConfig) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("export_dir", p.ExportDir),
		slog.String("logs_dir", p.LogsDir),
	)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
