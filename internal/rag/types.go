package rag

import "insightflow/internal/indexer"

// AskRequest represents one question against the stored chunks.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K is the desired chunk count, clamped to [MinK, MaxK].
	K int `json:"k,omitempty"`
}

// Result is one retrieved chunk as shown to the user.
type Result struct {
	// Rank is the 1-based position in retrieval order.
	Rank int `json:"rank"`
	// Title is the article title, or the source URL when the title is empty.
	Title string `json:"title"`
	// Source is the URL the chunk came from.
	Source string `json:"source"`
	// Snippet is the chunk content, truncated for display.
	Snippet string `json:"snippet"`
}

// AskResponse represents the outcome of one question.
type AskResponse struct {
	// Question echoes the question that was asked.
	Question string `json:"question"`
	// Answer is the generated text, or the generation error message.
	Answer string `json:"answer"`
	// AnswerError is set when generation failed.
	AnswerError string `json:"answer_error,omitempty"`
	// Results are the retrieved chunks in rank order.
	Results []Result `json:"results"`
	// Warnings are non-fatal conditions worth surfacing.
	Warnings []string `json:"warnings,omitempty"`
	// Mode names the store backend that served retrieval.
	Mode string `json:"mode"`
}

// Retrieval is the outcome of one retrieval. It never carries an error;
// problems are reported as Warnings.
type Retrieval struct {
	Chunks   []indexer.Chunk
	Mode     string
	Missing  bool // no store has been built yet
	Warnings []string
}
