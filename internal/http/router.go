package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"insightflow/internal/handlers"
	"insightflow/internal/metrics"
	"insightflow/internal/rag"
	"insightflow/internal/store"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine rag.Engine
	// Ingester is nil when ingestion is disabled; IngestDisabledReason says why.
	Ingester             handlers.Ingester
	IngestDisabledReason string
	Store                store.Store
	AnsweringEnabled     bool
	IndexHTML            string // Embedded HTML content
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	ingestHandler := handlers.NewIngestHandler(deps.Ingester, deps.IngestDisabledReason)
	storeHandler := handlers.NewStoreHandler(deps.Store)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.AnsweringEnabled, deps.Ingester != nil)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		// One state-touching action at a time; later requests wait their turn.
		r.Group(func(r chi.Router) {
			r.Use(middleware.ThrottleBacklog(1, 16, 60*time.Second))
			r.Method(http.MethodPost, "/ingest", ingestHandler)
			r.Method(http.MethodPost, "/ask", askHandler)
			r.Method(http.MethodDelete, "/store", storeHandler)
		})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Serve HTML page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(deps.IndexHTML))
	})

	return r
}
