package vectorstore

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestGRPCAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost", // Defaults to localhost
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcAddress(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("grpcAddress(%q) expected error, got nil", tt.urlStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcAddress(%q) unexpected error: %v", tt.urlStr, err)
			}
			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	// Returns before touching the client
	store := &QdrantStore{}

	err := store.Upsert(context.Background(), "test-collection", []Point{})
	if err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{}
	ctx := context.Background()

	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, -1); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
}

func TestQdrantStore_Close_NilClient(t *testing.T) {
	if err := (&QdrantStore{}).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Error("convertPayloadToMap() should return empty map, not nil")
	}
	if len(result) != 0 {
		t.Errorf("convertPayloadToMap() with nil should return empty map, got %d items", len(result))
	}

	payload := qdrant.NewValueMap(map[string]any{
		"source":   "https://example.com",
		"position": 2,
	})
	got := convertPayloadToMap(payload)
	if got["source"] != "https://example.com" {
		t.Errorf("source = %v", got["source"])
	}
	if got["position"] != int64(2) {
		t.Errorf("position = %v (%T), want int64(2)", got["position"], got["position"])
	}
}

func TestDenseVector(t *testing.T) {
	if got := denseVector(nil); got != nil {
		t.Errorf("denseVector(nil) = %v, want nil", got)
	}

	out := &qdrant.VectorsOutput{
		VectorsOptions: &qdrant.VectorsOutput_Vector{
			Vector: &qdrant.VectorOutput{Data: []float32{0.5, 0.25}},
		},
	}
	got := denseVector(out)
	if len(got) != 2 || got[0] != 0.5 || got[1] != 0.25 {
		t.Errorf("denseVector() = %v", got)
	}
}
