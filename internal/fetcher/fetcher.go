// Package fetcher retrieves raw HTML for article URLs.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"insightflow/internal/contextutil"
	"insightflow/internal/metrics"
	"insightflow/internal/service"
)

const defaultMaxBodySize = 10 << 20

// Fetcher issues single-attempt GET requests with a browser identity.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// New creates a Fetcher with the given timeout and User-Agent.
func New(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxBodySize: defaultMaxBodySize,
	}
}

// ValidateURL performs the checks that must pass before any network call.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &service.InvalidInputError{Field: "url", Value: raw, Message: "must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &service.InvalidInputError{Field: "url", Value: raw, Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &service.InvalidInputError{Field: "url", Value: raw, Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &service.InvalidInputError{Field: "url", Value: raw, Message: "missing host"}
	}
	return nil
}

// Fetch returns the body of rawURL. Network failures and non-2xx statuses
// come back as *service.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := ValidateURL(rawURL); err != nil {
		metrics.FetchTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		return nil, &service.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "fetch failed", "url", rawURL, "error", err)
		return nil, &service.FetchError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "fetch returned bad status", "url", rawURL, "status", resp.StatusCode)
		return nil, &service.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("bad status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		return nil, &service.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodySize {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "page too large", "url", rawURL, "limit_bytes", f.maxBodySize)
		return nil, &service.FetchError{URL: rawURL, Err: fmt.Errorf("body exceeds limit of %d bytes", f.maxBodySize)}
	}

	metrics.FetchTotal.WithLabelValues("ok").Inc()
	logger.DebugContext(ctx, "fetched page", "url", rawURL, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}
