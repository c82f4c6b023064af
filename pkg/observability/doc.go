// Package observability provides the service's structured logging,
// Prometheus metrics, health probes and graceful shutdown handling.
//
// Logging uses slog with a JSON handler. Metrics live on a private
// prometheus registry so tests can assert on them without global state.
// The readiness probe pings the backing row store; liveness never does.
package observability
