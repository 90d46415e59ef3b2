package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
	"insightflow/internal/service"
	"insightflow/internal/storage"
	"insightflow/internal/vectorstore"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexedStore keeps chunk vectors in a vector index and chunk text in
// the SQLite chunk repo. Both share the chunk's point ID.
type IndexedStore struct {
	embedder   Embedder
	vectors    vectorstore.VectorStore
	chunks     storage.ChunkStore
	collection string
	vectorSize int
	batchSize  int
}

// NewIndexedStore creates an IndexedStore. batchSize <= 0 embeds all
// chunks in one request.
func NewIndexedStore(
	embedder Embedder,
	vectors vectorstore.VectorStore,
	chunks storage.ChunkStore,
	collection string,
	vectorSize int,
	batchSize int,
) *IndexedStore {
	return &IndexedStore{
		embedder:   embedder,
		vectors:    vectors,
		chunks:     chunks,
		collection: collection,
		vectorSize: vectorSize,
		batchSize:  batchSize,
	}
}

// Mode implements Store.
func (s *IndexedStore) Mode() string {
	return ModeIndex
}

// PointID derives the deterministic point ID of the chunk at position in source.
func PointID(source string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+strconv.Itoa(position))).String()
}

// Save embeds chunks and rebuilds the collection around them. Validation
// and embedding run first so their failures leave the previous index
// intact. A failure after the old collection is dropped discards the
// partial index, and Load then reports service.ErrStoreMissing.
func (s *IndexedStore) Save(ctx context.Context, chunks []indexer.Chunk) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateChunks(chunks); err != nil {
		return err
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(chunks))
	records := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		id := PointID(c.Source, c.Position)
		points[i] = vectorstore.Point{
			ID:  id,
			Vec: vectors[i],
			Meta: map[string]any{
				"source":   c.Source,
				"title":    c.Title,
				"position": c.Position,
				"length":   c.Length,
			},
		}
		records[i] = &storage.ChunkRecord{
			ID:       id,
			Source:   c.Source,
			Title:    c.Title,
			Position: c.Position,
			Length:   c.Length,
			Content:  c.Content,
		}
	}

	if err := s.vectors.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := s.vectors.EnsureCollection(ctx, s.collection, s.vectorSize); err != nil {
		s.discard(ctx)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	if err := s.vectors.Upsert(ctx, s.collection, points); err != nil {
		s.discard(ctx)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	if err := s.chunks.ReplaceAll(ctx, records); err != nil {
		s.discard(ctx)
		return fmt.Errorf("failed to store chunk text: %w", err)
	}

	logger.InfoContext(ctx, "saved index", "collection", s.collection, "chunks", len(chunks))
	return nil
}

// discard removes a partially written index so vectors never point at
// missing chunk text.
func (s *IndexedStore) discard(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)
	if err := s.vectors.DeleteCollection(ctx, s.collection); err != nil {
		logger.ErrorContext(ctx, "failed to discard partial collection", "collection", s.collection, "error", err)
	}
	if err := s.chunks.DeleteAll(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to discard chunk rows", "error", err)
	}
	logger.WarnContext(ctx, "discarded partial index", "collection", s.collection)
}

func (s *IndexedStore) embed(ctx context.Context, chunks []indexer.Chunk) ([][]float32, error) {
	batch := s.batchSize
	if batch <= 0 {
		batch = len(chunks)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		embedded, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start+1, end, err)
		}
		if len(embedded) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(embedded))
		}
		vectors = append(vectors, embedded...)
	}
	return vectors, nil
}

// Load returns every stored chunk in ingestion order.
func (s *IndexedStore) Load(ctx context.Context) ([]indexer.Chunk, error) {
	if err := s.requireCollection(ctx); err != nil {
		return []indexer.Chunk{}, err
	}

	records, err := s.chunks.ListAll(ctx)
	if err != nil {
		return []indexer.Chunk{}, fmt.Errorf("failed to list chunks: %w", err)
	}

	chunks := make([]indexer.Chunk, 0, len(records))
	for _, r := range records {
		chunks = append(chunks, toChunk(r))
	}
	return chunks, nil
}

// Count implements Inventory from the chunk rows.
func (s *IndexedStore) Count(ctx context.Context) (int, error) {
	if err := s.requireCollection(ctx); err != nil {
		return 0, err
	}
	n, err := s.chunks.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Sources implements Inventory from the source rows.
func (s *IndexedStore) Sources(ctx context.Context) ([]Source, error) {
	if err := s.requireCollection(ctx); err != nil {
		return []Source{}, err
	}
	records, err := s.chunks.ListSources(ctx)
	if err != nil {
		return []Source{}, fmt.Errorf("failed to list sources: %w", err)
	}
	sources := make([]Source, 0, len(records))
	for _, r := range records {
		sources = append(sources, Source{URL: r.URL, Title: r.Title, Chunks: r.Chunks})
	}
	return sources, nil
}

func (s *IndexedStore) requireCollection(ctx context.Context) error {
	exists, err := s.vectors.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return service.ErrStoreMissing
	}
	return nil
}

// Clear drops the collection and every chunk row.
func (s *IndexedStore) Clear(ctx context.Context) error {
	if err := s.vectors.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := s.chunks.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "cleared index", "collection", s.collection)
	return nil
}

// Search embeds query, pulls opts.FetchK candidates from the vector index
// and keeps opts.K of them by maximal marginal relevance.
func (s *IndexedStore) Search(ctx context.Context, query string, opts SearchOptions) ([]indexer.Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if opts.K <= 0 {
		return nil, &service.InvalidInputError{Field: "k", Value: strconv.Itoa(opts.K), Message: "must be greater than 0"}
	}
	fetchK := max(opts.FetchK, opts.K)

	if err := s.requireCollection(ctx); err != nil {
		return nil, err
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	queryVector := embeddings[0]

	results, err := s.vectors.Search(ctx, s.collection, queryVector, fetchK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, service.ErrStoreMissing
		}
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	candidates := make([][]float32, len(results))
	for i, r := range results {
		candidates[i] = r.Vec
	}
	selected := vectorstore.MMR(queryVector, candidates, opts.K, opts.Lambda)
	logger.DebugContext(ctx, "mmr selection", "candidates", len(results), "selected", selected)

	chunks := make([]indexer.Chunk, 0, len(selected))
	for _, idx := range selected {
		record, err := s.chunks.GetByID(ctx, results[idx].PointID)
		if errors.Is(err, storage.ErrNotFound) {
			logger.WarnContext(ctx, "point has no chunk text", "point_id", results[idx].PointID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chunk: %w", err)
		}
		chunks = append(chunks, toChunk(record))
	}
	return chunks, nil
}

func toChunk(r *storage.ChunkRecord) indexer.Chunk {
	return indexer.Chunk{
		Content:  r.Content,
		Source:   r.Source,
		Title:    r.Title,
		Position: r.Position,
		Length:   r.Length,
	}
}
