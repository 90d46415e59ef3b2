package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"insightflow/internal/contextutil"
	"insightflow/internal/rag"
)

// AskHandler handles HTTP requests for questions against the stored chunks.
type AskHandler struct {
	ragEngine rag.Engine
	markdown  goldmark.Markdown
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{
		ragEngine: ragEngine,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// AskRequest represents the HTTP request payload for questions.
// Question may hold several newline-separated questions.
type AskRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k,omitempty"` // nil selects rag.DefaultK
}

// AnswerResponse is one answered question.
type AnswerResponse struct {
	rag.AskResponse
	// AnswerHTML is the answer rendered from markdown.
	AnswerHTML string `json:"answer_html"`
}

// AskResponse represents the HTTP response payload for questions.
type AskResponse struct {
	Responses []AnswerResponse `json:"responses"`
}

// ServeHTTP answers each question in the request. Retrieval and generation
// problems are reported inside the response, not as HTTP errors.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	answers := h.ragEngine.AskAll(ctx, req.Question, rag.ResolveK(req.K))

	resp := AskResponse{Responses: make([]AnswerResponse, 0, len(answers))}
	for _, a := range answers {
		resp.Responses = append(resp.Responses, AnswerResponse{
			AskResponse: a,
			AnswerHTML:  h.render(a),
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *AskHandler) render(a rag.AskResponse) string {
	if a.AnswerError != "" {
		return ""
	}
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(a.Answer), &buf); err != nil {
		return ""
	}
	return buf.String()
}
