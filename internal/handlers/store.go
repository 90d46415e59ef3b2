package handlers

import (
	"net/http"

	"insightflow/internal/contextutil"
	"insightflow/internal/store"
)

// StoreHandler handles HTTP requests that clear the chunk store.
type StoreHandler struct {
	store store.Store
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(s store.Store) *StoreHandler {
	return &StoreHandler{store: s}
}

// ClearResponse reports a cleared store.
type ClearResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// ServeHTTP removes every stored chunk. Clearing an empty store succeeds.
func (h *StoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodDelete {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := h.store.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to clear store", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear store")
		return
	}

	logger.InfoContext(ctx, "store cleared via API", "mode", h.store.Mode())
	writeJSON(ctx, w, http.StatusOK, ClearResponse{Status: "cleared", Mode: h.store.Mode()})
}
