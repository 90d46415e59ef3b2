package indexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"insightflow/internal/service"
)

const (
	// DefaultChunkSize is the window size used by the indexed store.
	DefaultChunkSize = 1000
	// DefaultFlatChunkSize is the window size used by the flat store.
	DefaultFlatChunkSize = 800
	// DefaultChunkOverlap is the overlap used by both store modes.
	DefaultChunkOverlap = 100
)

// separators are tried in order; the empty separator splits into runes.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into overlapping windows, preferring paragraph,
// line and word boundaries over mid-word breaks.
// Sizes are measured in runes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter validates the window parameters.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, &service.InvalidInputError{
			Field:   "chunk_size",
			Value:   strconv.Itoa(chunkSize),
			Message: "must be positive",
		}
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, &service.InvalidInputError{
			Field:   "chunk_overlap",
			Value:   strconv.Itoa(chunkOverlap),
			Message: "must be non-negative and smaller than chunk_size",
		}
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split returns the ordered chunk contents for text. Identical input
// always yields identical boundaries.
func (s *Splitter) Split(text string) []string {
	var out []string
	for _, piece := range s.split(text, separators) {
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// split implements the recursive step: split on the first separator
// present in text, merge small pieces, and recurse into oversized ones.
func (s *Splitter) split(text string, seps []string) []string {
	separator := seps[len(seps)-1]
	var remaining []string
	for i, sep := range seps {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = seps[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge greedily packs pieces into windows of at most ChunkSize runes.
// After emitting a window, leading pieces are dropped until no more than
// ChunkOverlap runes remain and the next piece fits.
func (s *Splitter) merge(pieces []string) []string {
	var windows []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			if w := strings.TrimSpace(strings.Join(current, "")); w != "" {
				windows = append(windows, w)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if w := strings.TrimSpace(strings.Join(current, "")); w != "" {
		windows = append(windows, w)
	}
	return windows
}

// splitKeepingSeparator splits text on sep and prefixes every piece after
// the first with the separator. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// BuildChunks tags each window of text with its provenance.
// Positions start at 1.
func BuildChunks(source, title, text string, splitter *Splitter) []Chunk {
	contents := splitter.Split(text)
	chunks := make([]Chunk, 0, len(contents))
	for i, content := range contents {
		chunks = append(chunks, Chunk{
			Content:  content,
			Source:   source,
			Title:    title,
			Position: i + 1,
			Length:   utf8.RuneCountInString(content),
		})
	}
	return chunks
}
