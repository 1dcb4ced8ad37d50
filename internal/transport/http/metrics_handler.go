package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler serves JSON counters that are not part of the Prometheus scrape
type MetricsHandler struct {
	hub HubStats
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(hub HubStats) *MetricsHandler {
	return &MetricsHandler{hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/websocket", h.GetWebSocketMetrics)
	return r
}

// GetWebSocketMetrics handles GET /api/metrics/websocket
func (h *MetricsHandler) GetWebSocketMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"metrics":   h.hub.GetHubMetrics(),
	})
}
