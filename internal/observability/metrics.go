package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes
const (
	OutcomeOK               = "ok"
	OutcomeError            = "error"
	OutcomeNoRelevantTables = "no_relevant_tables"
	OutcomeGenerationFailed = "generation_failed"
)

var (
	completionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nl2sql_completion_requests_total",
			Help: "Total number of completion requests by pipeline stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
	completionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nl2sql_completion_duration_seconds",
			Help:    "Completion request latency by pipeline stage.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
	pipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nl2sql_pipeline_requests_total",
			Help: "Total number of questions processed by outcome.",
		},
		[]string{"outcome"},
	)
	pipelineChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_pipeline_chunks",
			Help:    "Number of schema chunks planned per question.",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)
	confidenceParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nl2sql_confidence_parse_failures_total",
			Help: "Total number of confidence replies that held no readable score.",
		},
	)
	confidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_confidence_score",
			Help:    "Confidence scores assigned to candidate queries.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nl2sql_query_executions_total",
			Help: "Total number of generated queries executed by outcome.",
		},
		[]string{"outcome"},
	)
	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nl2sql_query_execution_duration_seconds",
			Help:    "Latency of generated query execution.",
			Buckets: prometheus.DefBuckets,
		},
	)
	indexedTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nl2sql_indexed_tables",
			Help: "Number of tables in the embedding index after the last digest.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		completionRequestsTotal,
		completionDurationSeconds,
		pipelineRequestsTotal,
		pipelineChunks,
		confidenceParseFailuresTotal,
		confidenceScore,
		executionsTotal,
		executionDurationSeconds,
		indexedTables,
	)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveCompletion records one completion call for a pipeline stage
func ObserveCompletion(stage string, err error, elapsed time.Duration) {
	completionRequestsTotal.WithLabelValues(stage, outcome(err)).Inc()
	completionDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObservePipeline records the final outcome of one question
func ObservePipeline(result string) {
	pipelineRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveChunks records how many chunks a question was split into
func ObserveChunks(n int) {
	pipelineChunks.Observe(float64(n))
}

// ObserveScoreParseFailure counts a confidence reply that held no score
func ObserveScoreParseFailure() {
	confidenceParseFailuresTotal.Inc()
}

// ObserveConfidence records the score assigned to one candidate query
func ObserveConfidence(score float64) {
	confidenceScore.Observe(score)
}

// ObserveExecution records one execution of generated SQL. Latency is only
// kept for successful runs.
func ObserveExecution(err error, elapsed time.Duration) {
	executionsTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		executionDurationSeconds.Observe(elapsed.Seconds())
	}
}

// SetIndexedTables sets the index size gauge, flooring at zero
func SetIndexedTables(n int) {
	if n < 0 {
		n = 0
	}
	indexedTables.Set(float64(n))
}
