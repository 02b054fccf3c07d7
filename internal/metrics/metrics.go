// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat requests by mode (sync, stream, ws) and outcome.
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvia",
		Name:      "chat_requests_total",
		Help:      "Chat requests by mode and outcome.",
	}, []string{"mode", "outcome"})

	// StreamFragments counts fragments written to streaming consumers.
	StreamFragments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvia",
		Name:      "stream_fragments_total",
		Help:      "Streamed fragments by type.",
	}, []string{"type"})

	// AnswerLatency observes end-to-end answer generation time.
	AnswerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "harvia",
		Name:      "answer_duration_seconds",
		Help:      "Time to produce a complete answer.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"mode"})

	// Recommendations counts recommendation requests by outcome.
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvia",
		Name:      "recommendation_requests_total",
		Help:      "Recommendation requests by outcome.",
	}, []string{"outcome"})

	// IndexedChunks reports the number of chunks in the retrieval index.
	IndexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "harvia",
		Name:      "indexed_chunks",
		Help:      "Chunks loaded into the retrieval index.",
	})
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
	OutcomeCancelled   = "cancelled"
)
