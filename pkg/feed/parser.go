package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/feedflow/pkg/domain"
)

// maxFeedSize limits the body read from a feed response
const maxFeedSize = 10 << 20

// StatusRecorder receives the http status of every feed response
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// HTTPParser fetches RSS/Atom/JSON feeds over http and parses them with gofeed
type HTTPParser struct {
	client    *http.Client
	userAgent string
	status    StatusRecorder
}

// NewHTTPParser makes a parser, status may be nil
func NewHTTPParser(timeout time.Duration, userAgent string, status StatusRecorder) *HTTPParser {
	if userAgent == "" {
		userAgent = "FeedFlow/1.0"
	}
	return &HTTPParser{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		status:    status,
	}
}

// Parse fetches and parses the feed at url
func (p *HTTPParser) Parse(ctx context.Context, url string) (*domain.ParsedFeed, error) {
	body, err := p.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(io.LimitReader(body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	res := &domain.ParsedFeed{
		Title:       strings.TrimSpace(feed.Title),
		Description: feed.Description,
		Link:        feed.Link,
		Items:       make([]domain.ParsedItem, 0, len(feed.Items)),
	}
	switch {
	case feed.UpdatedParsed != nil:
		res.Updated = *feed.UpdatedParsed
	case feed.PublishedParsed != nil:
		res.Updated = *feed.PublishedParsed
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed := domain.ParsedItem{
			GUID:        item.GUID,
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: item.Description,
			Content:     item.Content,
			Categories:  item.Categories,
		}
		if parsed.GUID == "" {
			parsed.GUID = parsed.Link
		}
		if item.Author != nil {
			parsed.Author = item.Author.Name
		}
		switch {
		case item.PublishedParsed != nil:
			parsed.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			parsed.Published = *item.UpdatedParsed
		}
		if parsed.Published.After(res.Updated) {
			res.Updated = parsed.Published
		}
		res.Items = append(res.Items, parsed)
	}

	return res, nil
}

// fetch retrieves the raw feed, non-200 responses are errors
func (p *HTTPParser) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/feed+json,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	if p.status != nil {
		p.status.RecordHTTPStatus(resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
