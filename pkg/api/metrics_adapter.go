package api

import (
	"strconv"

	"github.com/mobelwerk/gatehouse/pkg/access"
	"github.com/mobelwerk/gatehouse/pkg/observability"
)

// evaluatorMetrics bridges the evaluator's metrics hooks onto the
// prometheus instruments.
type evaluatorMetrics struct {
	metrics *observability.Metrics
}

// NewEvaluatorMetrics wraps the prometheus metrics as an access.Metrics.
// Returns nil (instrumentation disabled) for nil input.
func NewEvaluatorMetrics(m *observability.Metrics) access.Metrics {
	if m == nil {
		return nil
	}
	return &evaluatorMetrics{metrics: m}
}

func (e *evaluatorMetrics) ObserveDecision(reason access.Reason, allowed bool) {
	e.metrics.AccessDecisionsTotal.WithLabelValues(string(reason), strconv.FormatBool(allowed)).Inc()
}

func (e *evaluatorMetrics) ObserveCacheLookup(hit bool) {
	if hit {
		e.metrics.DecisionCacheHitsTotal.Inc()
	} else {
		e.metrics.DecisionCacheMissesTotal.Inc()
	}
}
