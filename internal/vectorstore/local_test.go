package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestLocalStore_EnsureCollection(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	exists, err := store.CollectionExists(ctx, "idx")
	if err != nil || exists {
		t.Fatalf("CollectionExists() = %v, %v; want false, nil", exists, err)
	}

	if err := store.EnsureCollection(ctx, "idx", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	// Idempotent with a matching size.
	if err := store.EnsureCollection(ctx, "idx", 3); err != nil {
		t.Fatalf("EnsureCollection() second call error = %v", err)
	}
	if err := store.EnsureCollection(ctx, "idx", 4); err == nil {
		t.Error("EnsureCollection() with a different size should fail")
	}

	exists, err = store.CollectionExists(ctx, "idx")
	if err != nil || !exists {
		t.Errorf("CollectionExists() = %v, %v; want true, nil", exists, err)
	}
}

func TestLocalStore_UpsertAndSearch(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	if err := store.EnsureCollection(ctx, "idx", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	points := []Point{
		{ID: "x", Vec: []float32{1, 0}, Meta: map[string]any{"source": "a", "position": 1}},
		{ID: "y", Vec: []float32{0, 1}, Meta: map[string]any{"source": "b", "position": 1}},
		{ID: "xy", Vec: []float32{1, 1}, Meta: map[string]any{"source": "c", "position": 2}},
	}
	if err := store.Upsert(ctx, "idx", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "idx", []float32{1, 0.1}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].PointID != "x" || results[1].PointID != "xy" {
		t.Errorf("Search() order = %s, %s; want x, xy", results[0].PointID, results[1].PointID)
	}
	if results[0].Score < results[1].Score {
		t.Error("Search() results should be ordered by descending score")
	}
	if len(results[0].Vec) != 2 || results[0].Vec[0] != 1 {
		t.Errorf("Search() Vec = %v, want stored vector", results[0].Vec)
	}
	if results[0].Meta["source"] != "a" {
		t.Errorf("Search() Meta = %v", results[0].Meta)
	}
	// JSON payloads decode numbers as float64.
	if results[1].Meta["position"] != float64(2) {
		t.Errorf("Search() Meta position = %v (%T)", results[1].Meta["position"], results[1].Meta["position"])
	}

	all, err := store.Search(ctx, "idx", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Search() with k > points returned %d, want 3", len(all))
	}
}

func TestLocalStore_Upsert_Replaces(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	if err := store.EnsureCollection(ctx, "idx", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.Upsert(ctx, "idx", []Point{{ID: "p", Vec: []float32{1, 0}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Upsert(ctx, "idx", []Point{{ID: "p", Vec: []float32{0, 1}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "idx", []float32{0, 1}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Vec[1] != 1 {
		t.Errorf("Search() = %+v, want one replaced point", results)
	}
}

func TestLocalStore_Upsert_Errors(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "idx", nil); err != nil {
		t.Errorf("Upsert() with no points error = %v", err)
	}

	err := store.Upsert(ctx, "missing", []Point{{ID: "p", Vec: []float32{1}}})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Upsert() into missing collection error = %v, want ErrCollectionNotFound", err)
	}

	if err := store.EnsureCollection(ctx, "idx", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.Upsert(ctx, "idx", []Point{{ID: "p", Vec: []float32{1, 2, 3}}}); err == nil {
		t.Error("Upsert() with wrong dimensions should fail")
	}
}

func TestLocalStore_Search_Errors(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	if _, err := store.Search(ctx, "missing", []float32{1}, 3); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Search() on missing collection error = %v, want ErrCollectionNotFound", err)
	}
	if _, err := store.Search(ctx, "missing", []float32{1}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
}

func TestLocalStore_DeleteCollection(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	// Deleting a missing collection succeeds.
	if err := store.DeleteCollection(ctx, "idx"); err != nil {
		t.Fatalf("DeleteCollection() on missing collection error = %v", err)
	}

	if err := store.EnsureCollection(ctx, "idx", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.Upsert(ctx, "idx", []Point{{ID: "p", Vec: []float32{1, 0}}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.DeleteCollection(ctx, "idx"); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}

	exists, err := store.CollectionExists(ctx, "idx")
	if err != nil || exists {
		t.Errorf("CollectionExists() after delete = %v, %v", exists, err)
	}

	// Recreating starts empty.
	if err := store.EnsureCollection(ctx, "idx", 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	results, err := store.Search(ctx, "idx", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after recreate returned %d results, want 0", len(results))
	}
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.4028235e38}
	got, err := decodeVector(encodeVector(vec))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("decodeVector()[%d] = %v, want %v", i, got[i], vec[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("decodeVector() with truncated blob should fail")
	}
}
