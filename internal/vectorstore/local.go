package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"insightflow/internal/contextutil"
	"insightflow/internal/storage"
)

// LocalStore implements VectorStore on a SQLite file with brute-force
// cosine search.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens (or creates) the vector database at path.
func NewLocalStore(path string) (*LocalStore, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			vector_size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			vector BLOB NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (collection, id),
			FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate vector database: %w", err)
		}
	}

	return &LocalStore{db: db}, nil
}

// Close closes the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the collection or validates its vector size.
func (s *LocalStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	size, err := s.vectorSize(ctx, collection)
	if err == ErrCollectionNotFound {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO collections (name, vector_size) VALUES (?, ?)",
			collection, vectorSize,
		); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return nil
	}
	if err != nil {
		return err
	}

	if size != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, size)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *LocalStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.vectorSize(ctx, collection)
	if err == ErrCollectionNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteCollection drops the collection and its points.
func (s *LocalStore) DeleteCollection(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM points WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "deleted collection", "collection", collection)
	return nil
}

// Upsert inserts or replaces points. Every vector must match the collection size.
func (s *LocalStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range points {
		if len(p.Vec) != size {
			return fmt.Errorf("point %s has %d dimensions, collection expects %d", p.ID, len(p.Vec), size)
		}
		payload, err := json.Marshal(p.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO points (collection, id, vector, payload) VALUES (?, ?, ?, ?)",
			collection, p.ID, encodeVector(p.Vec), string(payload),
		); err != nil {
			return fmt.Errorf("failed to upsert point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit points: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search scores every point in the collection against query.
func (s *LocalStore) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, payload FROM points WHERE collection = ?",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	for rows.Next() {
		var (
			id      string
			blob    []byte
			payload string
		)
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", id, err)
		}
		meta := map[string]any{}
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			return nil, fmt.Errorf("point %s: failed to decode payload: %w", id, err)
		}

		results = append(results, SearchResult{
			PointID: id,
			Score:   Cosine(query, vec),
			Vec:     vec,
			Meta:    meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Ties keep a stable order by ID.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *LocalStore) vectorSize(ctx context.Context, collection string) (int, error) {
	var size int
	err := s.db.QueryRowContext(ctx,
		"SELECT vector_size FROM collections WHERE name = ?",
		collection,
	).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, ErrCollectionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query collection: %w", err)
	}
	return size, nil
}

// encodeVector stores float32 values as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob has invalid length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
