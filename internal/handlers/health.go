package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
	"insightflow/internal/service"
	"insightflow/internal/store"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              store.Store
	answering          bool
	ingestion          bool
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(s store.Store, answering, ingestion bool) *HealthHandler {
	return &HealthHandler{
		store:              s,
		answering:          answering,
		ingestion:          ingestion,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP reports store state and which features are enabled.
// Returns 503 only when the store cannot be read.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"mode":      h.store.Mode(),
		"answering": enabledText(h.answering),
		"ingestion": enabledText(h.ingestion),
	}
	var issues []string

	var storeOK bool
	checks["store"], checks["chunks"], checks["sources"], storeOK = h.checkStore(checkCtx, logger)
	if !storeOK {
		issues = append(issues, "store_unreadable")
	}
	if checks["store"] == "missing" {
		issues = append(issues, "store_empty")
	}
	if !h.answering {
		issues = append(issues, "answering_disabled")
	}
	if !h.ingestion {
		issues = append(issues, "ingestion_disabled")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case !storeOK:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		status = "degraded"
	}

	writeJSON(ctx, w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}

// checkStore reports the store state with chunk and source counts.
// Stores with an Inventory are summarized without loading chunk text.
func (h *HealthHandler) checkStore(ctx context.Context, logger *slog.Logger) (state, chunks, sources string, ok bool) {
	var (
		count   int
		summary []store.Source
		err     error
	)
	if inv, isInv := h.store.(store.Inventory); isInv {
		if count, err = inv.Count(ctx); err == nil {
			summary, err = inv.Sources(ctx)
		}
	} else {
		var loaded []indexer.Chunk
		loaded, err = h.store.Load(ctx)
		count, summary = len(loaded), store.SummarizeSources(loaded)
	}

	switch {
	case err == nil:
		return "ok", strconv.Itoa(count), strconv.Itoa(len(summary)), true
	case errors.Is(err, service.ErrStoreMissing):
		return "missing", "0", "0", true
	default:
		logger.WarnContext(ctx, "store health check failed", "error", err)
		return "error", "0", "0", false
	}
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
