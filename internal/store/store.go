// Package store persists chunk records behind one interface with two
// backends: a flat JSON file and an embedding-backed similarity index.
package store

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks insightflow/internal/store Store,Searcher,Inventory

import (
	"context"
	"strconv"

	"insightflow/internal/indexer"
	"insightflow/internal/service"
)

// Store modes.
const (
	ModeIndex = "index"
	ModeFlat  = "flat"
)

// Store holds the single shared chunk collection.
type Store interface {
	// Save replaces the stored collection with chunks.
	Save(ctx context.Context, chunks []indexer.Chunk) error
	// Load returns every stored chunk. A missing store yields an empty
	// slice with service.ErrStoreMissing; an unreadable one yields an
	// empty slice with a *service.StoreCorruptError.
	Load(ctx context.Context) ([]indexer.Chunk, error)
	// Clear removes all chunks. Clearing an absent store succeeds.
	Clear(ctx context.Context) error
	// Mode names the backend.
	Mode() string
}

// SearchOptions tunes similarity retrieval.
type SearchOptions struct {
	K      int     // Number of chunks to return
	FetchK int     // Candidate pool size, at least K
	Lambda float64 // Relevance weight in [0,1]; 1 ignores redundancy
}

// Searcher is implemented by stores that can rank chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]indexer.Chunk, error)
}

// Source summarizes one stored article.
type Source struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

// Inventory is implemented by stores that can summarize their contents.
// Both methods return service.ErrStoreMissing when nothing is stored.
type Inventory interface {
	Count(ctx context.Context) (int, error)
	Sources(ctx context.Context) ([]Source, error)
}

// SummarizeSources groups chunks by source in first-seen order.
func SummarizeSources(chunks []indexer.Chunk) []Source {
	sources := []Source{}
	index := map[string]int{}
	for _, c := range chunks {
		i, ok := index[c.Source]
		if !ok {
			i = len(sources)
			index[c.Source] = i
			sources = append(sources, Source{URL: c.Source, Title: c.Title})
		}
		sources[i].Chunks++
	}
	return sources
}

// validateChunks rejects an empty set and any repeated source position.
func validateChunks(chunks []indexer.Chunk) error {
	if len(chunks) == 0 {
		return &service.InvalidInputError{Field: "chunks", Value: "", Message: "nothing to save"}
	}
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		key := c.Source + "#" + strconv.Itoa(c.Position)
		if seen[key] {
			return &service.InvalidInputError{Field: "chunks", Value: key, Message: "duplicate source position"}
		}
		seen[key] = true
	}
	return nil
}
