// Package metrics exposes Prometheus collectors for procurement runs and the
// HTTP API.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Procurement Engine
// =============================================================================

var (
	// plansTotal counts Plan calls by outcome.
	// Labels: outcome (success, invalid_request, no_candidates, credential_required, internal)
	plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "engine",
		Name:      "plans_total",
		Help:      "Total procurement plans by outcome",
	}, []string{"outcome"})

	// planLatencySeconds measures end-to-end Plan latency.
	planLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "procurement",
		Subsystem: "engine",
		Name:      "plan_latency_seconds",
		Help:      "End-to-end procurement plan latency",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	// stepLatencySeconds measures individual pipeline steps.
	// Labels: step
	stepLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "procurement",
		Subsystem: "engine",
		Name:      "step_latency_seconds",
		Help:      "Latency of individual pipeline steps",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"step"})

	// candidatesConsidered tracks how many items survive hard constraints.
	candidatesConsidered = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "procurement",
		Subsystem: "engine",
		Name:      "candidates_after_filtering",
		Help:      "Candidates remaining after hard-constraint filtering",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	// toolCallsTotal counts investigation tool invocations.
	// Labels: tool (price_history, availability)
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Total investigation tool calls by tool",
	}, []string{"tool"})

	// justificationFailuresTotal counts generator failures that degraded a plan.
	// Labels: provider
	justificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "llm",
		Name:      "justification_failures_total",
		Help:      "Justification generation failures by provider",
	}, []string{"provider"})

	// httpRequestsTotal counts API requests.
	// Labels: route, method, status
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total API requests by route, method and status code",
	}, []string{"route", "method", "status"})
)

// RecordPlan records a finished Plan call.
func RecordPlan(outcome string, latencySec float64) {
	plansTotal.WithLabelValues(outcome).Inc()
	planLatencySeconds.Observe(latencySec)
}

// RecordSteps records each step latency from a plan's metrics.
func RecordSteps(latencies map[string]float64) {
	for step, sec := range latencies {
		stepLatencySeconds.WithLabelValues(step).Observe(sec)
	}
}

// RecordCandidates records the size of the filtered candidate set.
func RecordCandidates(n int) {
	candidatesConsidered.Observe(float64(n))
}

// RecordToolCall records one investigation tool call.
func RecordToolCall(tool string) {
	toolCallsTotal.WithLabelValues(tool).Inc()
}

// RecordJustificationFailure records a degraded justification.
func RecordJustificationFailure(provider string) {
	justificationFailuresTotal.WithLabelValues(provider).Inc()
}

// RecordHTTPRequest records one API request.
func RecordHTTPRequest(route, method string, status int) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
