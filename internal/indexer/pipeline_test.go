package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insightflow/internal/extractor"
	"insightflow/internal/fetcher"
)

type recordingSink struct {
	calls int
	saved []Chunk
	err   error
}

func (s *recordingSink) Save(_ context.Context, chunks []Chunk) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.saved = chunks
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Doc</title></head><body><article><p>A.</p><p>B.</p></article></body></html>`))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Second</h1><p>Other text.</p></body></html>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="app"></div><script>render()</script></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestPipeline(t *testing.T, sink ChunkSink) *Pipeline {
	t.Helper()
	return NewPipeline(
		fetcher.New(2*time.Second, "test-agent"),
		extractor.New(extractor.ModeParagraphs),
		mustSplitter(t, DefaultChunkSize, DefaultChunkOverlap),
		sink,
	)
}

func TestPipeline_Ingest_SingleArticle(t *testing.T) {
	server := newTestServer(t)
	sink := &recordingSink{}
	url := server.URL + "/article"

	report := newTestPipeline(t, sink).Ingest(context.Background(), []string{url})

	if !report.OK() {
		t.Fatalf("Ingest() report = %+v, want saved", report)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("saved %d chunks, want 1", len(sink.saved))
	}
	c := sink.saved[0]
	if c.Content != "A.\nB." {
		t.Errorf("Content = %q, want %q", c.Content, "A.\nB.")
	}
	if c.Position != 1 || c.Source != url || c.Title != "Doc" || c.Length != 5 {
		t.Errorf("chunk = %+v", c)
	}
	if report.URLs[0].Status != StatusOK || report.URLs[0].Chunks != 1 {
		t.Errorf("URL report = %+v", report.URLs[0])
	}
	if report.Stats.Count != 1 || report.Stats.Max != 5 {
		t.Errorf("Stats = %+v", report.Stats)
	}
}

func TestPipeline_Ingest_InvalidURLIsSkipped(t *testing.T) {
	sink := &recordingSink{}

	report := newTestPipeline(t, sink).Ingest(context.Background(), []string{"not-a-url"})

	if len(report.URLs) != 1 {
		t.Fatalf("URL reports = %d, want 1", len(report.URLs))
	}
	if report.URLs[0].Status != StatusSkipped {
		t.Errorf("Status = %q, want %q", report.URLs[0].Status, StatusSkipped)
	}
	if report.URLs[0].Message == "" {
		t.Error("skipped URL should carry a message")
	}
	if report.Chunks != 0 || report.Saved {
		t.Errorf("report = %+v, want zero chunks and no save", report)
	}
	if sink.calls != 0 {
		t.Errorf("Save called %d times, want 0", sink.calls)
	}
}

func TestPipeline_Ingest_MixedBatch(t *testing.T) {
	server := newTestServer(t)
	sink := &recordingSink{}

	urls := []string{
		server.URL + "/broken",
		"   ",
		server.URL + "/empty",
		server.URL + "/article",
		server.URL + "/second",
	}
	report := newTestPipeline(t, sink).Ingest(context.Background(), urls)

	wantStatus := []string{StatusFailed, StatusSkipped, StatusOK, StatusSkipped}
	if len(report.URLs) != len(wantStatus) {
		t.Fatalf("URL reports = %d, want %d: %+v", len(report.URLs), len(wantStatus), report.URLs)
	}
	for i, want := range wantStatus {
		if report.URLs[i].Status != want {
			t.Errorf("URLs[%d].Status = %q, want %q (%s)", i, report.URLs[i].Status, want, report.URLs[i].Message)
		}
	}

	// The fourth non-blank URL exceeds MaxURLs and is never fetched.
	if len(sink.saved) != 1 || sink.saved[0].Source != server.URL+"/article" {
		t.Errorf("saved = %+v, want only the article chunk", sink.saved)
	}
}

func TestPipeline_Ingest_DuplicateURL(t *testing.T) {
	server := newTestServer(t)
	sink := &recordingSink{}
	url := server.URL + "/article"

	report := newTestPipeline(t, sink).Ingest(context.Background(), []string{url, " " + url + " ", server.URL + "/second"})

	wantStatus := []string{StatusOK, StatusSkipped, StatusOK}
	if len(report.URLs) != len(wantStatus) {
		t.Fatalf("URL reports = %d, want %d: %+v", len(report.URLs), len(wantStatus), report.URLs)
	}
	for i, want := range wantStatus {
		if report.URLs[i].Status != want {
			t.Errorf("URLs[%d].Status = %q, want %q", i, report.URLs[i].Status, want)
		}
	}
	if report.URLs[1].Message != "duplicate URL" {
		t.Errorf("URLs[1].Message = %q, want %q", report.URLs[1].Message, "duplicate URL")
	}

	if len(sink.saved) != 2 {
		t.Fatalf("saved %d chunks, want 2", len(sink.saved))
	}
	seen := map[string]bool{}
	for _, c := range sink.saved {
		key := fmt.Sprintf("%s#%d", c.Source, c.Position)
		if seen[key] {
			t.Errorf("chunk %s saved twice", key)
		}
		seen[key] = true
	}
}

func TestPipeline_Ingest_SaveError(t *testing.T) {
	server := newTestServer(t)
	sink := &recordingSink{err: errors.New("disk full")}

	report := newTestPipeline(t, sink).Ingest(context.Background(), []string{server.URL + "/article"})

	if report.Saved {
		t.Error("Saved = true, want false")
	}
	if report.StoreError != "disk full" {
		t.Errorf("StoreError = %q, want disk full", report.StoreError)
	}
	if report.OK() {
		t.Error("OK() = true, want false")
	}
	if report.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", report.Chunks)
	}
}

func TestPipeline_Ingest_NoURLs(t *testing.T) {
	sink := &recordingSink{}

	report := newTestPipeline(t, sink).Ingest(context.Background(), nil)

	if len(report.URLs) != 0 || report.Saved || sink.calls != 0 {
		t.Errorf("report = %+v, calls = %d", report, sink.calls)
	}
}
