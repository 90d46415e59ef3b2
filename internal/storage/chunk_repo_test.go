package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *ChunkRepo {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewChunkRepo(db)
}

func sampleChunks() []*ChunkRecord {
	return []*ChunkRecord{
		{ID: "b-1", Source: "https://b.example/x", Title: "B", Position: 1, Length: 5, Content: "b one"},
		{ID: "b-2", Source: "https://b.example/x", Title: "B", Position: 2, Length: 5, Content: "b two"},
		{ID: "a-1", Source: "https://a.example/y", Title: "A", Position: 1, Length: 5, Content: "a one"},
	}
}

func TestNewChunkRepo(t *testing.T) {
	repo := newTestRepo(t)
	if repo == nil {
		t.Fatal("NewChunkRepo() returned nil")
	}
	count, err := repo.Count(context.Background())
	if err != nil || count != 0 {
		t.Errorf("Count() on new repo = %d, %v; want 0, nil", count, err)
	}
}

func TestChunkRepo_ReplaceAll_ListAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	// Ingestion order of sources wins over URL ordering.
	wantIDs := []string{"b-1", "b-2", "a-1"}
	if len(got) != len(wantIDs) {
		t.Fatalf("ListAll() returned %d chunks, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("ListAll()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
	if got[0].Title != "B" || got[0].Content != "b one" || got[0].Length != 5 {
		t.Errorf("ListAll()[0] = %+v", got[0])
	}
}

func TestChunkRepo_ReplaceAll_Replaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	replacement := []*ChunkRecord{
		{ID: "c-1", Source: "https://c.example", Title: "C", Position: 1, Length: 1, Content: "c"},
	}
	if err := repo.ReplaceAll(ctx, replacement); err != nil {
		t.Fatalf("ReplaceAll() second call error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	sources, err := repo.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 1 || sources[0].URL != "https://c.example" {
		t.Errorf("ListSources() = %+v, want only c.example", sources)
	}
}

func TestChunkRepo_ReplaceAll_RollbackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	duplicate := []*ChunkRecord{
		{ID: "dup", Source: "https://d.example", Title: "D", Position: 1, Length: 1, Content: "d"},
		{ID: "dup", Source: "https://d.example", Title: "D", Position: 2, Length: 1, Content: "e"},
	}
	if err := repo.ReplaceAll(ctx, duplicate); err == nil {
		t.Fatal("ReplaceAll() with duplicate IDs should fail")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() after failed replace = %d, want previous 3", count)
	}
}

func TestChunkRepo_GetByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
		want    string
	}{
		{name: "existing chunk", id: "a-1", want: "a one"},
		{name: "missing chunk", id: "nope", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetByID() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByID() unexpected error: %v", err)
			}
			if got.Content != tt.want || got.Title != "A" {
				t.Errorf("GetByID() = %+v", got)
			}
		})
	}
}

func TestChunkRepo_ListSources(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	sources, err := repo.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListSources() returned %d sources, want 2", len(sources))
	}
	if sources[0].URL != "https://b.example/x" || sources[0].Chunks != 2 {
		t.Errorf("ListSources()[0] = %+v", sources[0])
	}
	if sources[1].Title != "A" || sources[1].Chunks != 1 {
		t.Errorf("ListSources()[1] = %+v", sources[1])
	}
	if sources[0].IngestedAt.IsZero() {
		t.Error("IngestedAt should be set")
	}
}

func TestChunkRepo_DeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Deleting an empty store succeeds.
	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() on empty store error = %v", err)
	}

	if err := repo.ReplaceAll(ctx, sampleChunks()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	chunks, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("ListAll() after DeleteAll = %d chunks, want 0", len(chunks))
	}
	sources, err := repo.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("ListSources() after DeleteAll = %d, want 0", len(sources))
	}
}
