package config

import "time"

// Application constants
const (
	AppName    = "smechannel"
	AppTitle   = "SME Channel Analytics"
	AppVersion = "1.0.0"

	// Ingestion
	DefaultMaxUploadBytes = 32 << 20 // 32MB

	// File Paths (relative to the base directory)
	DefaultDataDir   = "data"
	DefaultExportDir = "data/exports"
	DefaultLogsDir   = "logs"

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// API Endpoints
const (
	APIBasePath        = "/api"
	AnalysisEndpoint   = "/api/analysis"
	SimulationEndpoint = "/api/simulation"
	HealthEndpoint     = "/api/health"
	VersionEndpoint    = "/api/version"
	MetricsEndpoint    = "/metrics"
	WebSocketEndpoint  = "/ws"
)
