package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "smechannel/internal/errors"
	"smechannel/internal/services"
	"smechannel/internal/shared/testutil"
)

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

type stubHub map[string]interface{}

func (s stubHub) GetHubMetrics() map[string]interface{} { return s }

func TestHealthHandler_Routes(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockHealthService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "health",
			path: "/api/health",
			setupMock: func(m *MockHealthService) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "ok", Timestamp: time.Now()})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ok"`,
		},
		{
			name: "live",
			path: "/api/health/live",
			setupMock: func(m *MockHealthService) {
				m.On("LivenessCheck").Return(services.HealthStatus{Status: "alive"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"alive"`,
		},
		{
			name: "ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "ready"})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "not_ready"})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"status":"not_ready"`,
		},
		{
			name: "version",
			path: "/api/version",
			setupMock: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": "1.0.0"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"version":"1.0.0"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			mockService := new(MockHealthService)
			tt.setupMock(mockService)

			h := NewHealthHandler(mockService, logger)
			r := chi.NewRouter()
			r.Mount("/api/health", h.Routes())
			r.Get("/api/version", h.Version)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestMetricsHandler_WebSocket(t *testing.T) {
	h := NewMetricsHandler(stubHub{"active_clients": 2, "messages_sent": int64(9)})
	r := chi.NewRouter()
	r.Mount("/api/metrics", h.Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/websocket", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_clients":2`)
	assert.Contains(t, rec.Body.String(), `"messages_sent":9`)
}

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedLevel  slog.Level
		expectedMsg    string
	}{
		{
			name:           "warn entry",
			body:           `{"level":"WARN","message":"chart failed to render","source":"dashboard","data":{"chart":"lob"}}`,
			expectedStatus: http.StatusAccepted,
			expectedLevel:  slog.LevelWarn,
			expectedMsg:    "chart failed to render",
		},
		{
			name:           "level defaults to info",
			body:           `{"message":"page loaded"}`,
			expectedStatus: http.StatusAccepted,
			expectedLevel:  slog.LevelInfo,
			expectedMsg:    "page loaded",
		},
		{
			name:           "unknown level rejected",
			body:           `{"level":"fatal","message":"x"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "message required",
			body:           `{"level":"info"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewClientLogHandler(logger, apierrors.NewErrorHandler(logger, false))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			h.Handle(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedMsg != "" {
				testutil.AssertLogContains(t, logs, tt.expectedLevel, tt.expectedMsg)
				assert.True(t, logs.ContainsAttr("handler", "client_log"))
			}
		})
	}
}
