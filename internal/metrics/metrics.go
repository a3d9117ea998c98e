// Package metrics exposes Prometheus collectors for the audit pipeline's
// stage timings and outcome counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline stage metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_pipeline_runs_total",
			Help: "Total number of audit pipeline runs",
		},
		[]string{"kind", "status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditor_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Extractor metrics
	ExtractorAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_extractor_attempts_total",
			Help: "Total number of extraction strategy attempts",
		},
		[]string{"strategy", "outcome"},
	)

	ExtractionExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_extraction_exhausted_total",
			Help: "Total number of inputs for which every strategy in a plan failed",
		},
		[]string{"kind"},
	)

	// Reasoner metrics
	ReasonerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_reasoner_calls_total",
			Help: "Total number of reasoner model calls",
		},
		[]string{"model", "outcome"},
	)

	ReasonerFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_reasoner_fallbacks_total",
			Help: "Total number of times the fallback model was used after the primary failed",
		},
	)

	ReasonerUnrecoverableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_reasoner_unrecoverable_total",
			Help: "Total number of audits that fell back to a shell Report after both models failed",
		},
	)

	FailSafeRerunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_failsafe_reruns_total",
			Help: "Total number of fail-safe re-analysis reruns triggered by a suspiciously clean first pass",
		},
	)

	ReasonerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditor_reasoner_call_duration_seconds",
			Help:    "Reasoner model call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// Cache metrics
	DedupCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_dedup_cache_hits_total",
			Help: "Total number of audit requests served from the document-hash dedup cache",
		},
	)

	DedupCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_dedup_cache_misses_total",
			Help: "Total number of audit requests not found in the document-hash dedup cache",
		},
	)

	TokenBudgetExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_token_budget_exhausted_total",
			Help: "Total number of requests rejected for exhausting an API key's daily token budget",
		},
	)

	// Rule repository metrics
	RulePackLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditor_rulepack_loads_total",
			Help: "Total number of rule pack directory loads",
		},
		[]string{"outcome"},
	)

	RulePackInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditor_rulepack_invalidations_total",
			Help: "Total number of rule repository cache invalidations triggered by a filesystem watch event",
		},
	)
)

// RecordPipelineRun records the terminal outcome of one pipeline run.
func RecordPipelineRun(kind, status string, durationSeconds float64) {
	PipelineRunsTotal.WithLabelValues(kind, status).Inc()
	PipelineStageDuration.WithLabelValues("total").Observe(durationSeconds)
}

// RecordExtractorAttempt records one strategy's success or failure.
func RecordExtractorAttempt(strategy, outcome string) {
	ExtractorAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordReasonerCall records one model call's outcome and latency.
func RecordReasonerCall(model, outcome string, durationSeconds float64) {
	ReasonerCallsTotal.WithLabelValues(model, outcome).Inc()
	ReasonerCallDuration.WithLabelValues(model).Observe(durationSeconds)
}
