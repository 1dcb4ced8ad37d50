// Package http implements the HTTP handlers of the SME channel analyzer.
// Handlers are thin: they parse and validate requests, call a service and
// render the result. Every failure goes through errors.ErrorHandler and
// reaches the client as RFC 7807 problem details.
//
// # Routes
//
// Each handler exposes a chi sub-router through Routes() that the
// application mounts under its prefix:
//
//	/api/analysis     AnalysisHandler   upload, snapshot, sample, export
//	/api/simulation   SimulationHandler baseline, project
//	/api/health       HealthHandler     health, live, ready
//	/api/metrics      MetricsHandler    websocket hub counters
//
// # Error mapping
//
// Service sentinel errors are mapped with errors.Is before they reach the
// error handler:
//
//	services.ErrNoSnapshot         404 SNAPSHOT_NOT_FOUND
//	services.ErrUnsupportedFormat  415 UNSUPPORTED_FORMAT
//	services.ErrInvalidParameters  400 INVALID_PARAMETER
//
// Schema failures carry the missing columns and map to 422 SCHEMA_ERROR.
// Undecodable files map to 400 through the PARSING error type.
package http
