package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Upload rejection reasons
var (
	ErrUnsupportedExtension = errors.New("unsupported file type")
	ErrEmptyFile            = errors.New("file is empty")
	ErrFileTooLarge         = errors.New("file exceeds the size limit")
	ErrTemporaryFile        = errors.New("temporary office lock file")
)

// AcceptedExtensions are the policy export formats the pipeline can decode
var AcceptedExtensions = []string{".csv", ".txt", ".xlsx", ".xlsm"}

// FileValidator checks policy exports before they reach the pipeline
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a validator. maxBytes <= 0 disables the size check.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "file_validator")),
	}
}

// MaxBytes returns the configured size limit
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateName checks the extension of an uploaded or local file name
func (v *FileValidator) ValidateName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting temporary Excel file", slog.String("file", name))
		return fmt.Errorf("%s: %w", base, ErrTemporaryFile)
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return nil
		}
	}

	v.logger.Warn("Rejecting file with unsupported extension",
		slog.String("file", name),
		slog.String("extension", ext))
	return fmt.Errorf("%s (extension %q, expected one of %s): %w",
		base, ext, strings.Join(AcceptedExtensions, ", "), ErrUnsupportedExtension)
}

// ValidateSize checks a byte count against the configured limit
func (v *FileValidator) ValidateSize(name string, size int64) error {
	if size == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrEmptyFile)
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Rejecting oversized file",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("max_size", v.maxBytes))
		return fmt.Errorf("%s is %d bytes, limit is %d: %w", filepath.Base(name), size, v.maxBytes, ErrFileTooLarge)
	}
	return nil
}

// ValidateUpload checks a multipart upload's declared name and size
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	return v.ValidateSize(name, size)
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return v.ValidateSize(path, info.Size())
}

// ValidateInputFile checks a local policy export before ingestion
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := v.ValidateName(path); err != nil {
		return err
	}
	return v.ValidateFile(path)
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
