package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "smechannel/internal/errors"
	"smechannel/internal/exporter"
	mw "smechannel/internal/middleware"
	"smechannel/internal/services"
	"smechannel/internal/validation"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory
const multipartMemory = 8 << 20

// AnalysisHandler handles upload, snapshot and export requests with RFC 7807 errors
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	files        *validation.FileValidator
	query        *mw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, files *validation.FileValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		files:        files,
		query:        mw.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Get("/snapshot", h.GetSnapshot)
	r.Post("/sample", h.LoadSample)
	r.Get("/export", h.Export)

	return r
}

// Upload handles POST /api/analysis/upload
func (h *AnalysisHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.WarnContext(r.Context(), "invalid upload form",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Request must be multipart/form-data with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file field is required"))
		return
	}
	defer file.Close()

	if err := h.files.ValidateUpload(header.Filename, header.Size); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(header.Filename, err))
		return
	}

	h.logger.InfoContext(r.Context(), "ingesting upload",
		slog.String("request_id", reqID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
	)

	snap, err := h.service.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, snap)
}

// GetSnapshot handles GET /api/analysis/snapshot
func (h *AnalysisHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, snap)
}

// LoadSample handles POST /api/analysis/sample
func (h *AnalysisHandler) LoadSample(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "loading sample dataset",
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	snap, err := h.service.LoadSample(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, snap)
}

// Export handles GET /api/analysis/export?format=json|csv|xlsx
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", exporter.SupportedFormats, string(exporter.FormatJSON))
	if !ok {
		return
	}

	result, err := h.service.Export(r.Context(), format)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("error", err.Error()),
			slog.String("format", format),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("error", err.Error()))
	}
}

// uploadError maps file validation failures to API errors
func uploadError(name string, err error) error {
	switch {
	case errors.Is(err, validation.ErrFileTooLarge):
		return apierrors.ErrPayloadTooLarge
	case errors.Is(err, validation.ErrUnsupportedExtension), errors.Is(err, validation.ErrTemporaryFile):
		return apierrors.UnsupportedFormatError(strings.ToLower(filepath.Ext(name)))
	case errors.Is(err, validation.ErrEmptyFile):
		return apierrors.ErrValidation("file", "Uploaded file is empty")
	}
	return err
}

// mapServiceError maps service sentinel errors to API errors. Structured
// errors (schema, parsing, export) pass through to the error handler.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoSnapshot):
		return apierrors.ErrNoSnapshot
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "Unsupported export format", err.Error())
	case errors.Is(err, services.ErrInvalidParameters):
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "Simulation parameters are out of range", err.Error())
	}
	return err
}
