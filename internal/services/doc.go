// Package services holds the business operations behind the HTTP handlers
// and the CLI.
//
// AnalysisService owns the current analysis snapshot. Every successful
// ingestion builds a new snapshot and swaps it in atomically, so readers
// always see either the previous snapshot or the next one, never a mix. A
// failed ingestion leaves the previous snapshot in place. Subscribers are
// told about both outcomes through a Notifier.
//
// SimulationService derives a projection baseline from whatever snapshot is
// current and runs the projection engine against user parameters.
//
// HealthService reports liveness, readiness and build information.
//
// Services return plain sentinel errors (see errors.go) or the structured
// errors of internal/errors; the transport layer maps them onto RFC 7807
// responses.
package services
