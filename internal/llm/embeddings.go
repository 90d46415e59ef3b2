package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// EmbeddingsClient calls the POST {BaseURL}/embeddings endpoint of an
// OpenAI-compatible API. Gemini serves it under
// https://generativelanguage.googleapis.com/v1beta/openai with models such
// as text-embedding-004 (768 dimensions); local servers like llama.cpp or
// Ollama expose the same shape.
//
// The endpoint takes {"model", "input": [...]} and answers with one
// {"index", "embedding"} item per input. Items may arrive in any order.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Every returned vector must have this many dimensions
	client       *http.Client
}

// NewEmbeddingsClient creates a client for model. expectedSize comes from
// EMBEDDING_VECTOR_SIZE and must match the collection's vector size.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       &http.Client{Timeout: defaultTimeout},
	}
}

// EmbeddingsRequest is the embeddings request body.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector of the reply. Index points into the request's Input.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse is the embeddings reply body.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts returns one float32 vector per text, in input order. It fails
// when the reply is short, repeats or skips an index, or carries a vector
// of the wrong size. Non-200 replies come back as *APIError.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	var reply EmbeddingsResponse
	err := postJSON(ctx, c.client, c.BaseURL+"/embeddings", c.APIKey,
		EmbeddingsRequest{Model: c.Model, Input: texts}, &reply)
	if err != nil {
		return nil, err
	}
	if len(reply.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(reply.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range reply.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range [0,%d)", item.Index, len(texts))
		}
		if vectors[item.Index] != nil {
			return nil, fmt.Errorf("embedding index %d returned twice", item.Index)
		}
		if len(item.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", item.Index, len(item.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[item.Index] = vec
	}
	return vectors, nil
}
