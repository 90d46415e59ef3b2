package rag

import (
	"context"
	"errors"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
	"insightflow/internal/metrics"
	"insightflow/internal/service"
	"insightflow/internal/store"
)

// Retrieval bounds.
const (
	DefaultK = 3
	MinK     = 1
	MaxK     = 10
)

// Warning texts shown to users.
const (
	WarnMissing = "No index found. Ingest some URLs first."
	WarnCorrupt = "Stored chunks could not be read. Ingest the URLs again."
	WarnFailed  = "Retrieval failed; answering without context."
)

// MMROptions size the candidate pool for similarity retrieval.
type MMROptions struct {
	Lambda          float64 // Relevance weight in [0,1]
	FetchMultiplier int     // Pool size as a multiple of k
	MinFetchK       int     // Lower bound on pool size
}

// DefaultMMROptions returns the default diversity settings.
func DefaultMMROptions() MMROptions {
	return MMROptions{Lambda: 0.6, FetchMultiplier: 2, MinFetchK: 20}
}

// Retriever returns the chunks relevant to a query.
type Retriever struct {
	store store.Store
	mmr   MMROptions
}

// NewRetriever creates a Retriever over s.
func NewRetriever(s store.Store, mmr MMROptions) *Retriever {
	return &Retriever{store: s, mmr: mmr}
}

// ClampK bounds k to [MinK, MaxK].
func ClampK(k int) int {
	return max(MinK, min(k, MaxK))
}

// ResolveK returns DefaultK when k was not supplied, and k clamped otherwise.
func ResolveK(k *int) int {
	if k == nil {
		return DefaultK
	}
	return ClampK(*k)
}

// Retrieve picks up to k chunks for query when the store can rank, and
// every stored chunk otherwise.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) Retrieval {
	logger := contextutil.LoggerFromContext(ctx)
	k = ClampK(k)
	mode := r.store.Mode()
	metrics.QueriesTotal.WithLabelValues(mode).Inc()

	var (
		chunks []indexer.Chunk
		err    error
	)
	if searcher, ok := r.store.(store.Searcher); ok {
		chunks, err = searcher.Search(ctx, query, store.SearchOptions{
			K:      k,
			FetchK: max(r.mmr.FetchMultiplier*k, r.mmr.MinFetchK),
			Lambda: r.mmr.Lambda,
		})
	} else {
		chunks, err = r.store.Load(ctx)
	}

	out := Retrieval{Chunks: chunks, Mode: mode}
	if out.Chunks == nil {
		out.Chunks = []indexer.Chunk{}
	}

	switch {
	case err == nil:
	case errors.Is(err, service.ErrStoreMissing):
		logger.WarnContext(ctx, "retrieval found no store", "mode", mode)
		out.Chunks = []indexer.Chunk{}
		out.Missing = true
		out.Warnings = append(out.Warnings, WarnMissing)
	case errors.Is(err, service.ErrStoreCorrupt):
		logger.WarnContext(ctx, "retrieval found an unreadable store", "mode", mode, "error", err)
		out.Chunks = []indexer.Chunk{}
		out.Warnings = append(out.Warnings, WarnCorrupt)
	default:
		logger.ErrorContext(ctx, "retrieval failed", "mode", mode, "error", err)
		out.Chunks = []indexer.Chunk{}
		out.Warnings = append(out.Warnings, WarnFailed)
	}

	logger.InfoContext(ctx, "retrieval completed", "mode", mode, "k", k, "chunks", len(out.Chunks))
	return out
}
