// Package content pulls the readable text of an article page with trafilatura
package content

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"
)

// defaults for extractor options
const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; FeedFlow/1.0)"
	defaultMaxBytes  = 5 << 20
)

// Extraction is the readable part of an article page
type Extraction struct {
	Title string
	Text  string
}

// Options defines extractor parameters, zero values use defaults
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64 // page size limit, larger bodies are truncated before extraction
	MinLength int   // extractions with less text are reported as failures
}

// HTTPExtractor fetches article pages and extracts their main text
type HTTPExtractor struct {
	opts   Options
	client *http.Client
}

// NewHTTPExtractor makes an extractor with its own http client
func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &HTTPExtractor{opts: opts, client: &http.Client{}}
}

// Extract downloads the page at pageURL and returns its main text
func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) (Extraction, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return Extraction{}, fmt.Errorf("parse url: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Extraction{}, fmt.Errorf("invalid url: %q", pageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return Extraction{}, fmt.Errorf("create request: %w", err)
	}
	setPageHeaders(req, e.opts.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	topts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}
	result, err := trafilatura.Extract(io.LimitReader(resp.Body, e.opts.MaxBytes), topts)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	if result == nil {
		return Extraction{}, fmt.Errorf("nothing extracted from %s", pageURL)
	}

	text := strings.TrimSpace(result.ContentText)
	if text == "" {
		return Extraction{}, fmt.Errorf("no text extracted from %s", pageURL)
	}
	if len(text) < e.opts.MinLength {
		return Extraction{}, fmt.Errorf("extracted text from %s too short, %d < %d", pageURL, len(text), e.opts.MinLength)
	}

	log.Printf("[DEBUG] extracted %d chars from %s", len(text), pageURL)
	return Extraction{Title: strings.TrimSpace(result.Metadata.Title), Text: text}, nil
}

// setPageHeaders makes the request look like a regular browser page load
func setPageHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
