// Package config loads the service configuration.
//
// # Configuration Sources
//
// Values are layered in this order of precedence:
//
//	1. Environment variables, including any loaded from a local .env file
//	2. config.yaml (looked up in ., configs/ and ../configs/)
//	3. Struct tag defaults
//
// # Environment Variables
//
// All variables use the SME_ prefix followed by the section and field:
//
//	SME_SERVER_PORT=8080
//	SME_LOGGING_LEVEL=debug
//	SME_INGESTION_MAX_UPLOAD_BYTES=33554432
//	SME_INGESTION_LOAD_SAMPLE_ON_START=true
//	SME_INGESTION_SCAN_DATA_DIR=true
//	SME_TELEMETRY_TRACE_EXPORTER=stdout
//	SME_PATHS_EXPORT_DIR=/var/lib/smechannel/exports
//
// # Paths
//
// Relative directories are anchored at Paths.BaseDir, which defaults to the
// directory of the running executable.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests can start from Default() or call LoadFrom with a temporary file.
package config
