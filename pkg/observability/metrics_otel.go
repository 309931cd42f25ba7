package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the Prometheus instruments onto OpenTelemetry for
// deployments that ship metrics over OTLP instead of scraping.
type OTelMetrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	accessDecisionsTotal metric.Int64Counter
	cacheHitsTotal       metric.Int64Counter
	cacheMissesTotal     metric.Int64Counter

	dbQueryDuration metric.Float64Histogram
}

// NewOTelMetrics creates the OTel metric instruments
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/mobelwerk/gatehouse")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	m.accessDecisionsTotal, err = meter.Int64Counter(
		"gatehouse.access.decisions",
		metric.WithDescription("Access decisions by reason code and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access decisions counter: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"gatehouse.decision_cache.hits",
		metric.WithDescription("Decision cache lookups served from cache"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"gatehouse.decision_cache.misses",
		metric.WithDescription("Decision cache lookups that required evaluation"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Database query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one served HTTP request
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.response.status_code", status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationSeconds, attrs)
}

// RecordAccessDecision records one evaluation outcome
func (m *OTelMetrics) RecordAccessDecision(ctx context.Context, reason string, allowed bool) {
	m.accessDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gatehouse.reason", reason),
		attribute.Bool("gatehouse.allowed", allowed),
	))
}

// RecordCacheLookup records one decision cache lookup
func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		m.cacheHitsTotal.Add(ctx, 1)
		return
	}
	m.cacheMissesTotal.Add(ctx, 1)
}

// RecordDBQuery records one database query duration
func (m *OTelMetrics) RecordDBQuery(ctx context.Context, query string, durationSeconds float64) {
	m.dbQueryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("db.operation.name", query),
	))
}
