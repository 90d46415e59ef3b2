package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// StoreModeIndex persists chunks as embeddings in a similarity index.
	StoreModeIndex = "index"
	// StoreModeFlat persists chunks as a single serialized list.
	StoreModeFlat = "flat"

	// VectorBackendLocal keeps the vector index in a SQLite file under IndexDir.
	VectorBackendLocal = "local"
	// VectorBackendQdrant keeps the vector index in a Qdrant collection.
	VectorBackendQdrant = "qdrant"

	// ExtractorParagraphs collects <p> text from the article container.
	ExtractorParagraphs = "paragraphs"
	// ExtractorReadability uses readability scoring to find the article body.
	ExtractorReadability = "readability"

	// DefaultUserAgent is a browser identity so that sites blocking bare clients still respond.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	LLMMaxOutputTokens int
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingBatchSize int
	VectorSize         int

	StoreMode     string
	VectorBackend string
	IndexDir      string
	IndexName     string
	FlatStorePath string
	QdrantURL     string

	ChunkSize    int
	ChunkOverlap int

	ExtractorMode  string
	FetchTimeout   time.Duration
	FetchUserAgent string

	MMRLambda          float64
	MMRFetchMultiplier int
	MMRMinFetchK       int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or one of its parents, it is loaded.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		// Gemini exposes an OpenAI-compatible surface; any other compatible server works too.
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModelName:       getEnv("LLM_MODEL", "gemini-1.5-flash"),
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-004"),
		StoreMode:          strings.ToLower(getEnv("STORE_MODE", StoreModeIndex)),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendLocal)),
		IndexDir:           getEnv("INDEX_DIR", "./data/insightflow_index"),
		IndexName:          getEnv("INDEX_NAME", "insightflow_index"),
		FlatStorePath:      getEnv("FLAT_STORE_PATH", "./data/insightflow_chunks.json"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		ExtractorMode:      strings.ToLower(getEnv("EXTRACTOR_MODE", ExtractorParagraphs)),
		FetchUserAgent:     getEnv("FETCH_USER_AGENT", DefaultUserAgent),
		APIPort:            getEnv("API_PORT", "8501"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.LLMBaseURL
	}

	ints := []struct {
		key  string
		def  int
		min  int
		dest *int
	}{
		{"LLM_MAX_OUTPUT_TOKENS", 256, 1, &cfg.LLMMaxOutputTokens},
		{"EMBEDDING_BATCH_SIZE", 32, 1, &cfg.EmbeddingBatchSize},
		// Must match the output size of the embedding model; text-embedding-004 returns 768.
		{"EMBEDDING_VECTOR_SIZE", 768, 1, &cfg.VectorSize},
		{"MMR_FETCH_MULTIPLIER", 2, 1, &cfg.MMRFetchMultiplier},
		{"MMR_MIN_FETCH_K", 20, 1, &cfg.MMRMinFetchK},
	}
	for _, v := range ints {
		n, err := getEnvInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		if n < v.min {
			return nil, fmt.Errorf("%s must be at least %d", v.key, v.min)
		}
		*v.dest = n
	}

	switch cfg.StoreMode {
	case StoreModeIndex, StoreModeFlat:
	default:
		return nil, fmt.Errorf("STORE_MODE must be %q or %q, got %q", StoreModeIndex, StoreModeFlat, cfg.StoreMode)
	}
	switch cfg.VectorBackend {
	case VectorBackendLocal, VectorBackendQdrant:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", VectorBackendLocal, VectorBackendQdrant, cfg.VectorBackend)
	}
	switch cfg.ExtractorMode {
	case ExtractorParagraphs, ExtractorReadability:
	default:
		return nil, fmt.Errorf("EXTRACTOR_MODE must be %q or %q, got %q", ExtractorParagraphs, ExtractorReadability, cfg.ExtractorMode)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// Chunk sizes default per store mode: 1000/100 for the index, 800/100 for the flat list.
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", defaultChunkSize(cfg.StoreMode)); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 100); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}

	lambda, err := strconv.ParseFloat(getEnv("MMR_LAMBDA", "0.6"), 64)
	if err != nil {
		return nil, fmt.Errorf("MMR_LAMBDA must be a valid number: %w", err)
	}
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("MMR_LAMBDA must be between 0 and 1")
	}
	cfg.MMRLambda = lambda

	timeout, err := time.ParseDuration(getEnv("FETCH_TIMEOUT", "12s"))
	if err != nil {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be a valid duration: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be greater than 0")
	}
	cfg.FetchTimeout = timeout

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	return cfg, nil
}

// SetStoreMode switches the store backend. When CHUNK_SIZE is not set in
// the environment, the chunk size follows the new mode's default.
func (c *Config) SetStoreMode(mode string) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case StoreModeIndex, StoreModeFlat:
	default:
		return fmt.Errorf("store mode must be %q or %q, got %q", StoreModeIndex, StoreModeFlat, mode)
	}
	c.StoreMode = mode
	if os.Getenv("CHUNK_SIZE") == "" {
		c.ChunkSize = defaultChunkSize(mode)
	}
	return nil
}

func defaultChunkSize(mode string) int {
	if mode == StoreModeFlat {
		return 800
	}
	return 1000
}

// AnsweringEnabled reports whether an API credential for the generation service is present.
func (c *Config) AnsweringEnabled() bool {
	return c.LLMAPIKey != ""
}

// IngestionEnabled reports whether ingestion can run. The similarity index
// needs the embedding service; the flat list does not.
func (c *Config) IngestionEnabled() bool {
	return c.StoreMode == StoreModeFlat || c.LLMAPIKey != ""
}

// EnsureDataDirs creates the directories that hold persisted state for the configured mode.
func (c *Config) EnsureDataDirs() error {
	dir := c.IndexDir
	if c.StoreMode == StoreModeFlat {
		dir = filepath.Dir(c.FlatStorePath)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
