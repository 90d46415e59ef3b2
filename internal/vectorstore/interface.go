package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks insightflow/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when a collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Vec holds the stored vector so callers can rerank candidates.
type SearchResult struct {
	PointID string
	Score   float32
	Vec     []float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// DeleteCollection drops the collection and all of its points.
	// Deleting a missing collection is not an error.
	DeleteCollection(ctx context.Context, collection string) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k points ordered by descending cosine similarity.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Close releases the underlying connection.
	Close() error
}
