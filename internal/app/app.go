package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"smechannel/internal/config"
	"smechannel/internal/dataprocessing"
	apierrors "smechannel/internal/errors"
	"smechannel/internal/exporter"
	"smechannel/internal/files"
	"smechannel/internal/infrastructure"
	customMiddleware "smechannel/internal/middleware"
	"smechannel/internal/services"
	handlers "smechannel/internal/transport/http"
	"smechannel/internal/validation"
	ws "smechannel/internal/websocket"
	"smechannel/pkg/contracts"
)

// multipartOverhead is the slack allowed on top of MaxUploadBytes for
// multipart boundaries and part headers.
const multipartOverhead = 1 << 20

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	WebSocketHub  *ws.Hub
	Files         *validation.FileValidator
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis   *services.AnalysisService
	Simulation *services.SimulationService
	Health     *services.HealthService
	Exporter   *exporter.Exporter
}

// NewApplication loads configuration, initializes the process logger and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppTitle),
		slog.String("version", contracts.Version),
		slog.String("addr", cfg.Server.Addr()))

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	cfg.Paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)
	a.Files = validation.NewFileValidator(a.Config.Ingestion.MaxUploadBytes, a.Logger)

	exp := exporter.NewExporter(a.Config.Paths, a.Logger)
	analysis := services.NewAnalysisService(dataprocessing.NewPipeline(a.Logger), exp, a.WebSocketHub, a.Metrics, a.Logger)

	a.Services = &ServiceContainer{
		Analysis:   analysis,
		Simulation: services.NewSimulationService(analysis, a.Metrics, a.Logger),
		Health:     services.NewHealthService(contracts.GetVersionInfo(), a.Config.Paths, analysis, a.WebSocketHub, a.Logger),
		Exporter:   exp,
	}

	a.Logger.Info("All services initialized successfully")
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware so the websocket upgrade sees an unwrapped writer
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.allowedOrigins(), a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle(config.WebSocketEndpoint, wsHandler)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → security → CORS → rate limit
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint, outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the /api handlers
func (a *Application) setupAPIRoutes(r chi.Router) {
	analysisHandler := handlers.NewAnalysisHandler(a.Services.Analysis, a.Files, a.Logger, a.ErrorHandler)
	simulationHandler := handlers.NewSimulationHandler(a.Services.Simulation, a.Logger, a.ErrorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	metricsHandler := handlers.NewMetricsHandler(a.WebSocketHub)
	clientLogHandler := handlers.NewClientLogHandler(a.Logger, a.ErrorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(middleware.Timeout(a.Config.Server.RequestTimeout))

		r.Route("/analysis", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(a.Config.Ingestion.MaxUploadBytes + multipartOverhead))
			r.Mount("/", analysisHandler.Routes())
		})
		r.Mount("/simulation", simulationHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/metrics", metricsHandler.Routes())
		r.Post("/logs", clientLogHandler.Handle)
	})
}

func (a *Application) allowedOrigins() []string {
	if !a.Config.Security.EnableCORS {
		return nil
	}
	return a.getCORSConfig().AllowedOrigins
}

// getCORSConfig returns CORS configuration for the dashboard origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: append([]string(nil), a.Config.Security.AllowedOrigins...),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.Config.Logging.Development {
		// Dashboard dev server
		cfg.AllowedOrigins = append(cfg.AllowedOrigins,
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		)
	}

	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts background services and loads the startup dataset. It does
// not start the HTTP listener.
func (a *Application) Start(ctx context.Context) {
	a.WebSocketHub.Start()

	if err := a.Files.ValidateOutputDirectory(a.Config.Paths.ExportDir); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warning", slog.String("warning", err.Error()))
	}

	a.loadInitialData(ctx)
}

// loadInitialData ingests the configured initial file, then the newest
// export in the data directory, falling back to the sample dataset when
// enabled.
func (a *Application) loadInitialData(ctx context.Context) {
	ingest := a.Config.Ingestion

	if ingest.InitialFile != "" && a.loadFile(ctx, ingest.InitialFile) {
		return
	}

	if ingest.ScanDataDir {
		latest, err := files.NewDiscovery(a.Config.Paths.BaseDir).LatestPolicyFile(a.Config.Paths.DataDir)
		if err != nil {
			a.Logger.InfoContext(ctx, "No export found in data directory",
				slog.String("dir", a.Config.Paths.DataDir),
				slog.String("reason", err.Error()))
		} else if a.loadFile(ctx, latest.Path) {
			return
		}
	}

	if ingest.LoadSampleOnStart {
		if _, err := a.Services.Analysis.LoadSample(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Sample dataset could not be loaded", slog.String("error", err.Error()))
			return
		}
		a.Logger.InfoContext(ctx, "Sample dataset loaded")
	}
}

func (a *Application) loadFile(ctx context.Context, path string) bool {
	err := a.Files.ValidateInputFile(path)
	if err == nil {
		_, err = a.Services.Analysis.IngestFile(ctx, path)
	}
	if err != nil {
		a.Logger.WarnContext(ctx, "Initial dataset could not be loaded",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return false
	}
	a.Logger.InfoContext(ctx, "Initial dataset loaded", slog.String("file", path))
	return true
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves HTTP until ctx is cancelled or an interrupt arrives, then
// shuts down within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}
