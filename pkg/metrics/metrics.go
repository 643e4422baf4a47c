// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// QueriesTotal tracks total document queries answered.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queries_total",
			Help: "Total document queries answered",
		},
		[]string{"scope", "status"},
	)

	// QueryDuration tracks end-to-end query answering duration.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Document query answering duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"scope", "status"},
	)

	// LLMCompletionDuration tracks LLM completion duration.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks total messages stored.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages stored",
		},
		[]string{"sender"},
	)

	// SessionRestoresTotal tracks session restore attempts by outcome.
	SessionRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_restores_total",
			Help: "Session restore attempts by outcome",
		},
		[]string{"outcome"},
	)

	// FavoriteTogglesTotal tracks favorite toggles by outcome.
	FavoriteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favorite_toggles_total",
			Help: "Favorite toggles by outcome",
		},
		[]string{"outcome"},
	)

	// DocumentsTracked tracks the number of documents in the library.
	DocumentsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "documents_tracked",
			Help: "Number of documents in the library by status",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordQuery records metrics for a document query.
func RecordQuery(scope, status string, duration float64) {
	QueriesTotal.WithLabelValues(scope, status).Inc()
	QueryDuration.WithLabelValues(scope, status).Observe(duration)
}

// RecordLLMCompletion records metrics for an LLM completion.
func RecordLLMCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
