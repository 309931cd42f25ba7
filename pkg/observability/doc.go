// Package observability bundles the operational concerns shared by the
// gatehouse binaries: structured logging, Prometheus metrics, OpenTelemetry
// wiring, health probes, panic recovery, and graceful shutdown.
//
// # Logging
//
// Logger is a thin facade over stdlib slog emitting JSON. Handlers obtain a
// request-scoped logger via FromContext, which picks up the request ID and
// user ID placed in the context by the HTTP middleware.
//
// # Metrics
//
// NewMetrics registers the gatehouse_* instrument set on a caller-supplied
// registry: HTTP served/latency, access decisions by reason, decision cache
// hit ratio and size, entitlement mutation outcomes, dependency violations,
// audit sink status, and database pool/query health. HTTPMetricsMiddleware
// instruments any http.Handler; MetricsHandler mounts the scrape endpoint.
// OTelMetrics mirrors the same instruments over OTLP for deployments that
// push rather than scrape.
//
// # Health
//
// HealthChecker serves /health/live (process up) and /health/ready
// (database reachable, entitlement relation present, redis reachable when
// configured). A missing entitlement relation reports unhealthy: the API
// could only answer 503 anyway.
//
// # Shutdown
//
// ShutdownManager drains the HTTP server and runs registered shutdown
// functions concurrently under a single deadline on SIGINT/SIGTERM.
package observability
