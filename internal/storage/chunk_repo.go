package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks insightflow/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// ReplaceAll deletes every source and chunk, then inserts chunks.
	// Each chunk.ID must be set before calling this method.
	ReplaceAll(ctx context.Context, chunks []*ChunkRecord) error
	// ListAll returns every chunk in ingestion order.
	ListAll(ctx context.Context) ([]*ChunkRecord, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// ListSources returns the ingested sources in ingestion order.
	ListSources(ctx context.Context) ([]*SourceRecord, error)
	// DeleteAll removes every source and chunk.
	DeleteAll(ctx context.Context) error
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceAll swaps the stored chunk set inside a single transaction.
func (r *ChunkRepo) ReplaceAll(ctx context.Context, chunks []*ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}

	ord := 0
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		if !seen[chunk.Source] {
			seen[chunk.Source] = true
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sources (url, ord, title) VALUES (?, ?, ?)",
				chunk.Source, ord, chunk.Title,
			); err != nil {
				return fmt.Errorf("failed to insert source: %w", err)
			}
			ord++
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (id, source, position, length, content) VALUES (?, ?, ?, ?, ?)",
			chunk.ID, chunk.Source, chunk.Position, chunk.Length, chunk.Content,
		); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// ListAll returns every chunk ordered by source ingestion order, then position.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListAll(ctx context.Context) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.source, s.title, c.position, c.length, c.content
		 FROM chunks c JOIN sources s ON s.url = c.source
		 ORDER BY s.ord, c.position`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []*ChunkRecord{}
	for rows.Next() {
		var chunk ChunkRecord
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Title, &chunk.Position, &chunk.Length, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT c.id, c.source, s.title, c.position, c.length, c.content
		 FROM chunks c JOIN sources s ON s.url = c.source
		 WHERE c.id = ?`,
		id,
	).Scan(&chunk.ID, &chunk.Source, &chunk.Title, &chunk.Position, &chunk.Length, &chunk.Content)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	return &chunk, nil
}

// ListSources returns every source with its chunk count.
func (r *ChunkRepo) ListSources(ctx context.Context) ([]*SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.url, s.title, s.ingested_at, COUNT(c.id)
		 FROM sources s LEFT JOIN chunks c ON c.source = s.url
		 GROUP BY s.url
		 ORDER BY s.ord`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	sources := []*SourceRecord{}
	for rows.Next() {
		var src SourceRecord
		if err := rows.Scan(&src.URL, &src.Title, &src.IngestedAt, &src.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sources, nil
}

// DeleteAll removes every source and chunk. Deleting an empty store is not an error.
func (r *ChunkRepo) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// deleteAll clears chunks before sources.
func deleteAll(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sources"); err != nil {
		return fmt.Errorf("failed to delete sources: %w", err)
	}
	return nil
}
