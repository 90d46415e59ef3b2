package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
	"insightflow/internal/service"
)

// FlatStore keeps chunks as a JSON array in a single file.
type FlatStore struct {
	path string
}

// NewFlatStore creates a FlatStore backed by path.
func NewFlatStore(path string) *FlatStore {
	return &FlatStore{path: path}
}

// Path returns the backing file path.
func (s *FlatStore) Path() string {
	return s.path
}

// Mode implements Store.
func (s *FlatStore) Mode() string {
	return ModeFlat
}

// Save writes chunks to a temporary file and renames it over the old one.
func (s *FlatStore) Save(ctx context.Context, chunks []indexer.Chunk) error {
	if err := validateChunks(chunks); err != nil {
		return err
	}

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync chunks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "saved flat store", "path", s.path, "chunks", len(chunks))
	return nil
}

// Load reads the stored chunks.
func (s *FlatStore) Load(ctx context.Context) ([]indexer.Chunk, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []indexer.Chunk{}, service.ErrStoreMissing
	}
	if err != nil {
		return []indexer.Chunk{}, &service.StoreCorruptError{Path: s.path, Err: err}
	}

	var chunks []indexer.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "flat store is unreadable", "path", s.path, "error", err)
		return []indexer.Chunk{}, &service.StoreCorruptError{Path: s.path, Err: err}
	}
	if chunks == nil {
		chunks = []indexer.Chunk{}
	}
	return chunks, nil
}

// Count implements Inventory.
func (s *FlatStore) Count(ctx context.Context) (int, error) {
	chunks, err := s.Load(ctx)
	return len(chunks), err
}

// Sources implements Inventory.
func (s *FlatStore) Sources(ctx context.Context) ([]Source, error) {
	chunks, err := s.Load(ctx)
	if err != nil {
		return []Source{}, err
	}
	return SummarizeSources(chunks), nil
}

// Clear deletes the store file.
func (s *FlatStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove store file: %w", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "cleared flat store", "path", s.path)
	return nil
}
