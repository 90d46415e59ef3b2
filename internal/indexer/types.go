package indexer

// Chunk is a bounded slice of an article's extracted text with provenance.
type Chunk struct {
	Content  string `json:"content"`  // Chunk text, never empty
	Source   string `json:"source"`   // URL the text was fetched from
	Title    string `json:"title"`    // Extracted article title
	Position int    `json:"position"` // 1-based ordinal within Source
	Length   int    `json:"length"`   // Rune count of Content
}
