// Package metrics holds the Prometheus collectors for ingestion and query activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insightflow"

var (
	// FetchTotal counts page fetches by outcome (ok, invalid, error).
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_total",
		Help:      "Page fetches by outcome.",
	}, []string{"outcome"})

	// FetchDuration observes the wall time of page fetches.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching pages.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
	})

	// ChunksIngested counts chunk records written to the store.
	ChunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_ingested_total",
		Help:      "Chunk records written to the store.",
	})

	// URLsIngested counts URLs by ingestion status (ok, skipped, failed).
	URLsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "urls_ingested_total",
		Help:      "URLs processed by ingestion status.",
	}, []string{"status"})

	// QueriesTotal counts retrievals by store mode.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Retrievals by store mode.",
	}, []string{"mode"})

	// GenerationTotal counts answer generations by outcome (ok, error).
	GenerationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_total",
		Help:      "Answer generations by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
