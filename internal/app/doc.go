// Package app wires the SME channel analyzer together: configuration,
// logging, OpenTelemetry, the analysis and simulation services, the
// websocket hub and the chi router.
//
// # Initialization Flow
//
//	1. Load configuration (.env, SME_* variables, optional YAML file)
//	2. Initialize logging and OpenTelemetry providers
//	3. Create the ingestion pipeline, exporter and services
//	4. Mount HTTP handlers behind the middleware chain
//	5. Start the hub and load the initial dataset
//	6. Serve until interrupted, then shut down gracefully
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package app
