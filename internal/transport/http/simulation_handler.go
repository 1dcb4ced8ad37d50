package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "smechannel/internal/errors"
	mw "smechannel/internal/middleware"
	api "smechannel/pkg/contracts/api/v1"
)

// SimulationHandler serves projection baselines and projections
type SimulationHandler struct {
	service      SimulationServiceInterface
	validation   *mw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(service SimulationServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SimulationHandler {
	return &SimulationHandler{
		service:      service,
		validation:   mw.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "simulation_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the simulation routes
func (h *SimulationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validation.ValidateJSON)

	r.Get("/baseline", h.GetBaseline)
	r.With(mw.ContentTypeValidator(h.errorHandler, "application/json")).Post("/project", h.Project)

	return r
}

// GetBaseline handles GET /api/simulation/baseline
func (h *SimulationHandler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Baseline(r.Context()))
}

// Project handles POST /api/simulation/project. An empty body projects the
// baseline defaults.
func (h *SimulationHandler) Project(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req api.ProjectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validation.ValidateStruct(req); err != nil {
		h.logger.InfoContext(r.Context(), "projection request rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Project(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, resp)
}
