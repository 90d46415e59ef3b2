package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"insightflow/internal/config"
	"insightflow/internal/extractor"
	"insightflow/internal/fetcher"
	"insightflow/internal/indexer"
	"insightflow/internal/llm"
	"insightflow/internal/rag"
	"insightflow/internal/service"
	"insightflow/internal/storage"
	"insightflow/internal/store"
	"insightflow/internal/vectorstore"
)

// app holds the wired components for one command run.
type app struct {
	cfg     *config.Config
	store   store.Store
	answers *service.AnswerService
	closers []func() error
}

// newApp opens the configured store and builds the answer service.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if err := cfg.EnsureDataDirs(); err != nil {
		return nil, err
	}

	switch cfg.StoreMode {
	case config.StoreModeFlat:
		fs := store.NewFlatStore(cfg.FlatStorePath)
		slog.DebugContext(ctx, "using flat store", "path", fs.Path())
		a.store = fs
	default:
		s, err := a.openIndexedStore()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = s
	}

	var generator service.Generator
	if cfg.AnsweringEnabled() {
		generator = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	}
	a.answers = service.NewAnswerService(generator, cfg.LLMModelName, cfg.LLMMaxOutputTokens)

	slog.DebugContext(ctx, "app initialized",
		"store", cfg.StoreMode,
		"answering", cfg.AnsweringEnabled(),
		"ingestion", cfg.IngestionEnabled(),
	)
	return a, nil
}

func (a *app) openIndexedStore() (*store.IndexedStore, error) {
	cfg := a.cfg

	var vectors vectorstore.VectorStore
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		vectors = qs
	default:
		ls, err := vectorstore.NewLocalStore(filepath.Join(cfg.IndexDir, "vectors.db"))
		if err != nil {
			return nil, err
		}
		vectors = ls
	}
	a.closers = append(a.closers, vectors.Close)

	db, err := storage.New(filepath.Join(cfg.IndexDir, "chunks.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	return store.NewIndexedStore(
		embedder,
		vectors,
		storage.NewChunkRepo(db),
		cfg.IndexName,
		cfg.VectorSize,
		cfg.EmbeddingBatchSize,
	), nil
}

// pipeline builds the ingestion path, or reports why ingestion is disabled.
func (a *app) pipeline() (*indexer.Pipeline, error) {
	if !a.cfg.IngestionEnabled() {
		return nil, fmt.Errorf("%w: ingestion into the index needs LLM_API_KEY or GOOGLE_API_KEY", service.ErrDisabled)
	}
	splitter, err := indexer.NewSplitter(a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return indexer.NewPipeline(
		fetcher.New(a.cfg.FetchTimeout, a.cfg.FetchUserAgent),
		extractor.New(extractor.Mode(a.cfg.ExtractorMode)),
		splitter,
		a.store,
	), nil
}

// engine builds the query path.
func (a *app) engine() rag.Engine {
	retriever := rag.NewRetriever(a.store, rag.MMROptions{
		Lambda:          a.cfg.MMRLambda,
		FetchMultiplier: a.cfg.MMRFetchMultiplier,
		MinFetchK:       a.cfg.MMRMinFetchK,
	})
	return rag.NewEngine(retriever, a.answers)
}

// Close releases every opened resource in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
