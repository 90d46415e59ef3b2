package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"insightflow/internal/indexer"
	"insightflow/internal/rag"
	"insightflow/internal/store"
	"insightflow/internal/store/mocks"
)

type stubEngine struct{}

func (stubEngine) Ask(_ context.Context, req rag.AskRequest) rag.AskResponse {
	return rag.AskResponse{Question: req.Question, Answer: "ok"}
}

func (e stubEngine) AskAll(ctx context.Context, questions string, k int) []rag.AskResponse {
	return []rag.AskResponse{e.Ask(ctx, rag.AskRequest{Question: questions, K: k})}
}

type stubIngester struct{}

func (stubIngester) Ingest(_ context.Context, urls []string) indexer.IngestReport {
	return indexer.IngestReport{Chunks: len(urls), Saved: true}
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := mocks.NewMockStore(ctrl)
	s.EXPECT().Mode().Return(store.ModeFlat).AnyTimes()
	s.EXPECT().Load(gomock.Any()).Return(nil, nil).AnyTimes()
	s.EXPECT().Clear(gomock.Any()).Return(nil).AnyTimes()

	return &Deps{
		RAGEngine:        stubEngine{},
		Ingester:         stubIngester{},
		Store:            s,
		AnsweringEnabled: true,
		IndexHTML:        "<html><body>Test</body></html>",
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "GET root serves HTML", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "GET health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "GET metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "POST ask", method: http.MethodPost, path: "/api/ask", body: `{"question":"q"}`, wantStatus: http.StatusOK},
		{name: "POST ask bad body", method: http.MethodPost, path: "/api/ask", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "GET ask method not allowed", method: http.MethodGet, path: "/api/ask", wantStatus: http.StatusMethodNotAllowed},
		{name: "POST ingest", method: http.MethodPost, path: "/api/ingest", body: `{"urls":["https://a.example"]}`, wantStatus: http.StatusOK},
		{name: "DELETE store", method: http.MethodDelete, path: "/api/store", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_RootServesHTML(t *testing.T) {
	deps := newTestDeps(t)
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Router GET / status = %v, want %v", w.Code, http.StatusOK)
	}

	if w.Body.String() != deps.IndexHTML {
		t.Errorf("Router GET / body = %v, want %v", w.Body.String(), deps.IndexHTML)
	}

	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Router GET / Content-Type = %v, want text/html; charset=utf-8", w.Header().Get("Content-Type"))
	}
}

func TestRouter_IngestDisabled(t *testing.T) {
	deps := newTestDeps(t)
	deps.Ingester = nil
	deps.IngestDisabledReason = "no API key configured"
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"urls":["https://a.example"]}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/ingest status = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), "no API key configured") {
		t.Errorf("POST /api/ingest body = %q, want disabled reason", w.Body.String())
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
