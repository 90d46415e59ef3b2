package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"insightflow/internal/contextutil"
	"insightflow/internal/metrics"
	"insightflow/internal/service"
)

// MaxURLs is the number of URLs accepted per ingestion run.
const MaxURLs = 3

// URL ingestion statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// PageFetcher retrieves raw HTML for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor turns HTML into a title and body.
type ContentExtractor interface {
	Extract(rawHTML []byte, pageURL string) (title, body string, err error)
}

// ChunkSink receives the full chunk set of an ingestion run.
type ChunkSink interface {
	Save(ctx context.Context, chunks []Chunk) error
}

// URLReport is the outcome of one URL.
type URLReport struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Title   string `json:"title,omitempty"`
	Chunks  int    `json:"chunks"`
	Message string `json:"message,omitempty"`
}

// IngestReport is the outcome of a whole ingestion run.
type IngestReport struct {
	URLs       []URLReport `json:"urls"`
	Chunks     int         `json:"chunks"`
	Stats      ChunkStats  `json:"stats"`
	Saved      bool        `json:"saved"`
	StoreError string      `json:"store_error,omitempty"`
}

// OK reports whether at least one URL produced chunks and they were saved.
func (r IngestReport) OK() bool {
	return r.Saved && r.StoreError == ""
}

// Pipeline orchestrates fetch, extract and chunk for a batch of URLs,
// then replaces the store contents with the resulting chunks.
type Pipeline struct {
	fetcher   PageFetcher
	extractor ContentExtractor
	splitter  *Splitter
	sink      ChunkSink
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(fetcher PageFetcher, extractor ContentExtractor, splitter *Splitter, sink ChunkSink) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		splitter:  splitter,
		sink:      sink,
	}
}

// Ingest processes urls sequentially. A failure on one URL never stops
// the others, and Ingest itself never fails: every problem is recorded
// in the report.
func (p *Pipeline) Ingest(ctx context.Context, urls []string) IngestReport {
	logger := contextutil.LoggerFromContext(ctx)

	var cleaned []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}

	report := IngestReport{URLs: make([]URLReport, 0, len(cleaned))}
	var all []Chunk
	seen := make(map[string]bool, len(cleaned))

	for i, u := range cleaned {
		var skip string
		switch {
		case i >= MaxURLs:
			skip = fmt.Sprintf("only the first %d URLs are ingested", MaxURLs)
		case seen[u]:
			// Chunk positions must stay unique per source.
			skip = "duplicate URL"
		}
		seen[u] = true
		if skip != "" {
			report.URLs = append(report.URLs, URLReport{URL: u, Status: StatusSkipped, Message: skip})
			metrics.URLsIngested.WithLabelValues(StatusSkipped).Inc()
			continue
		}

		chunks, r := p.ingestURL(ctx, u)
		report.URLs = append(report.URLs, r)
		metrics.URLsIngested.WithLabelValues(r.Status).Inc()
		all = append(all, chunks...)
	}

	report.Chunks = len(all)
	report.Stats = ComputeChunkStats(all)

	if len(all) == 0 {
		logger.WarnContext(ctx, "no chunks produced, store left unchanged", "urls", len(cleaned))
		return report
	}

	if err := p.sink.Save(ctx, all); err != nil {
		logger.ErrorContext(ctx, "failed to save chunks", "chunks", len(all), "error", err)
		report.StoreError = err.Error()
		return report
	}

	report.Saved = true
	metrics.ChunksIngested.Add(float64(len(all)))
	logger.InfoContext(ctx, "ingestion completed", "urls", len(cleaned), "chunks", len(all))
	return report
}

// ingestURL runs validate, fetch, extract and chunk for a single URL.
func (p *Pipeline) ingestURL(ctx context.Context, u string) ([]Chunk, URLReport) {
	logger := contextutil.LoggerFromContext(ctx)
	r := URLReport{URL: u}

	raw, err := p.fetcher.Fetch(ctx, u)
	if err != nil {
		r.Message = err.Error()
		if errors.Is(err, service.ErrInvalidInput) {
			r.Status = StatusSkipped
			logger.WarnContext(ctx, "skipping invalid url", "url", u, "error", err)
		} else {
			r.Status = StatusFailed
			logger.WarnContext(ctx, "failed to fetch url", "url", u, "error", err)
		}
		return nil, r
	}

	title, body, err := p.extractor.Extract(raw, u)
	if err != nil {
		r.Status = StatusFailed
		r.Message = err.Error()
		logger.WarnContext(ctx, "failed to extract content", "url", u, "error", err)
		return nil, r
	}
	r.Title = title

	if body == "" {
		r.Status = StatusSkipped
		r.Message = service.ErrEmptyContent.Error()
		logger.WarnContext(ctx, "no text content extracted", "url", u)
		return nil, r
	}

	chunks := BuildChunks(u, title, body, p.splitter)
	if len(chunks) == 0 {
		r.Status = StatusSkipped
		r.Message = service.ErrEmptyContent.Error()
		return nil, r
	}

	r.Status = StatusOK
	r.Chunks = len(chunks)
	logger.InfoContext(ctx, "ingested url", "url", u, "title", title, "chunks", len(chunks))
	return chunks, r
}
