package rag

import (
	"context"
	"strings"

	"insightflow/internal/contextutil"
	"insightflow/internal/indexer"
	"insightflow/internal/service"
)

// SnippetRunes caps the displayed length of a result.
const SnippetRunes = 500

// Warning texts for the query path.
const (
	WarnNoResults    = "No relevant content found in indexed pages"
	WarnSingleSource = "All results come from a single source; answers may be one-sided."
)

// Answerer produces an answer from a question and context text.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) service.Answer
}

// Engine answers questions from retrieved chunks.
type Engine interface {
	// Ask answers a single question.
	Ask(ctx context.Context, req AskRequest) AskResponse
	// AskAll answers each non-blank line of questions in order.
	AskAll(ctx context.Context, questions string, k int) []AskResponse
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever *Retriever
	answerer  Answerer
}

// NewEngine creates a new RAG engine.
func NewEngine(retriever *Retriever, answerer Answerer) Engine {
	return &ragEngine{
		retriever: retriever,
		answerer:  answerer,
	}
}

// Ask retrieves chunks for the question and answers from them. A failure
// in either step is reported in the response, never returned.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) AskResponse {
	logger := contextutil.LoggerFromContext(ctx)
	question := strings.TrimSpace(req.Question)

	logger.InfoContext(ctx, "RAG query started", "question", question, "k", req.K)

	retrieval := e.retriever.Retrieve(ctx, question, req.K)
	resp := AskResponse{
		Question: question,
		Results:  []Result{},
		Warnings: retrieval.Warnings,
		Mode:     retrieval.Mode,
	}

	if len(retrieval.Chunks) == 0 {
		resp.Warnings = append(resp.Warnings, WarnNoResults)
	} else {
		resp.Results = toResults(retrieval.Chunks)
		if len(retrieval.Chunks) > 1 && singleSource(retrieval.Chunks) {
			resp.Warnings = append(resp.Warnings, WarnSingleSource)
		}
	}

	answer := e.answerer.Answer(ctx, question, joinContents(retrieval.Chunks))
	resp.Answer = answer.Display()
	if !answer.OK() {
		resp.AnswerError = answer.Err.Error()
	}

	logger.InfoContext(ctx, "RAG query completed", "results", len(resp.Results), "answer_ok", answer.OK())
	return resp
}

// AskAll answers newline-separated questions. One failure never stops the rest.
func (e *ragEngine) AskAll(ctx context.Context, questions string, k int) []AskResponse {
	var responses []AskResponse
	for _, line := range strings.Split(questions, "\n") {
		q := strings.TrimSpace(line)
		if q == "" {
			continue
		}
		responses = append(responses, e.Ask(ctx, AskRequest{Question: q, K: k}))
	}
	return responses
}

func toResults(chunks []indexer.Chunk) []Result {
	results := make([]Result, len(chunks))
	for i, c := range chunks {
		title := c.Title
		if strings.TrimSpace(title) == "" {
			title = c.Source
		}
		results[i] = Result{
			Rank:    i + 1,
			Title:   title,
			Source:  c.Source,
			Snippet: Snippet(c.Content, SnippetRunes),
		}
	}
	return results
}

// Snippet truncates s to n runes, marking the cut with an ellipsis.
func Snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func singleSource(chunks []indexer.Chunk) bool {
	for _, c := range chunks[1:] {
		if c.Source != chunks[0].Source {
			return false
		}
	}
	return true
}

func joinContents(chunks []indexer.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n")
}
