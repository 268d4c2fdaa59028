package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns answered, by outcome (answer, tool, fallback)",
		},
		[]string{"outcome"},
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_failures_total",
			Help: "Language model calls that failed, by reason",
		},
		[]string{"reason"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Candidate retrieval latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RetrievalCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_candidates",
			Help:    "Number of candidates returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
		[]string{"method"},
	)

	EmbeddingRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_rows_total",
			Help: "Catalog rows processed by the embedding indexer",
		},
		[]string{"entity", "result"},
	)

	LeadsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "save_lead tool invocations accepted",
		},
	)
)
