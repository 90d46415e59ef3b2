package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
)

// Ingester runs the ingestion path over a batch of URLs.
type Ingester interface {
	Ingest(ctx context.Context, urls []string) indexer.IngestReport
}

// IngestHandler handles HTTP requests for ingesting article URLs.
type IngestHandler struct {
	ingester Ingester
	reason   string
}

// NewIngestHandler creates a new IngestHandler. A nil ingester disables
// the endpoint and reason is reported instead.
func NewIngestHandler(ingester Ingester, reason string) *IngestHandler {
	return &IngestHandler{
		ingester: ingester,
		reason:   reason,
	}
}

// IngestRequest represents the HTTP request payload for ingestion.
type IngestRequest struct {
	// URLs to fetch; at most indexer.MaxURLs are processed.
	URLs []string `json:"urls"`
}

// ServeHTTP fetches, chunks and stores the requested URLs, then reports
// per-URL outcomes. A batch where every URL fails still returns 200.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "Ingestion disabled: "+h.reason)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "At least one URL is required")
		return
	}

	logger.InfoContext(ctx, "ingestion triggered via API", "urls", len(urls))
	report := h.ingester.Ingest(ctx, urls)
	writeJSON(ctx, w, http.StatusOK, report)
}
