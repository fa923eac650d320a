package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "jan"
	subsystem = "plm_chat"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Chat pipeline
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "replies_total",
			Help:      "Chat replies by source (llm or direct) and intent",
		},
		[]string{"source", "intent"},
	)

	ContextFragments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "context_fragments",
			Help:      "Number of fragments in each assembled context block",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	// PLM backend
	PLMLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plm_lookups_total",
			Help:      "PLM lookups by kind and outcome (success, error, empty)",
		},
		[]string{"kind", "outcome"},
	)

	PLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plm_request_duration_seconds",
			Help:      "OpenBOM API call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation", "status"},
	)

	// LLM
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_duration_seconds",
			Help:      "LLM completion duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	TokensPromptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tokens_prompt_total",
			Help:      "Total prompt tokens consumed",
		},
		[]string{"model"},
	)

	TokensCompletionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tokens_completion_total",
			Help:      "Total completion tokens generated",
		},
		[]string{"model"},
	)

	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_errors_total",
			Help:      "Total LLM provider call failures",
		},
		[]string{"model", "error_type"},
	)

	// Sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Conversation sessions currently held in memory",
		},
	)

	SessionsEvictedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_evicted_total",
			Help:      "Sessions dropped from memory by reason (capacity, idle)",
		},
		[]string{"reason"},
	)

	AuthRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_requests_total",
			Help:      "OpenBOM login attempts",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

func RecordReply(source, intent string) {
	RepliesTotal.WithLabelValues(source, intent).Inc()
}

func RecordLookup(kind, outcome string) {
	PLMLookupsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordPLMRequest(operation, status string, durationSec float64) {
	PLMRequestDuration.WithLabelValues(operation, status).Observe(durationSec)
}

// RecordCompletion records duration and token usage of a successful completion
func RecordCompletion(model string, promptTokens, completionTokens int, durationSec float64) {
	LLMDuration.WithLabelValues(model).Observe(durationSec)
	TokensPromptTotal.WithLabelValues(model).Add(float64(promptTokens))
	TokensCompletionTotal.WithLabelValues(model).Add(float64(completionTokens))
}

func RecordProviderError(model, errorType string) {
	ProviderErrorsTotal.WithLabelValues(model, errorType).Inc()
}

func RecordSessionEviction(reason string) {
	SessionsEvictedTotal.WithLabelValues(reason).Inc()
}

func RecordAuth(status string) {
	AuthRequestsTotal.WithLabelValues(status).Inc()
}
