package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ChunkRecord is a chunk row joined with its source title.
type ChunkRecord struct {
	ID       string // UUID (same as the vector point ID)
	Source   string // URL, foreign key to sources.url
	Title    string // Title of the source article
	Position int    // 1-based ordinal within the source
	Length   int    // Rune count of Content
	Content  string // Chunk text
}

// SourceRecord describes one ingested article.
type SourceRecord struct {
	URL        string
	Title      string
	Chunks     int
	IngestedAt time.Time
}
