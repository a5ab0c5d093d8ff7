// Package feed manages feed sources: CRUD, health, fetching and ingestion of entries into articles
package feed

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/umputun/feedflow/pkg/content"
	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/llm"
	"github.com/umputun/feedflow/pkg/metrics"
	"github.com/umputun/feedflow/pkg/store"
)

//go:generate moq -out mocks/parser.go -pkg mocks -skip-ensure -fmt goimports . Parser
//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/summarizer.go -pkg mocks -skip-ensure -fmt goimports . Summarizer

// defaultMaxItems caps entries ingested from one fetch
const defaultMaxItems = 50

// Parser retrieves and parses a feed document
type Parser interface {
	Parse(ctx context.Context, url string) (*domain.ParsedFeed, error)
}

// Extractor retrieves the main text of an article page
type Extractor interface {
	Extract(ctx context.Context, url string) (content.Extraction, error)
}

// Summarizer produces a summary, key points and topics of an article
type Summarizer interface {
	Summarize(ctx context.Context, req llm.Request) (llm.Summary, error)
}

// Articles is the article collection ingestion writes to.
// Exists is a cheap early skip, CreateIfAbsent is the authoritative duplicate check.
type Articles interface {
	Exists(ctx context.Context, url, title string) (bool, error)
	CreateIfAbsent(ctx context.Context, in domain.ArticleInput) (domain.Article, bool, error)
}

// Filters blocks entries by keyword
type Filters interface {
	Match(ctx context.Context, texts ...string) (*domain.Filter, error)
	RecordBlocked(ctx context.Context, id int64) error
}

// Topics is the topic catalog used for tagging
type Topics interface {
	Names(ctx context.Context) ([]string, error)
	UpdateArticleCount(ctx context.Context, name string, delta int) (domain.Topic, error)
}

// Recorder receives fetch and ingestion metrics
type Recorder interface {
	RecordFetch(success bool, duration time.Duration)
	RecordIngested(count int)
	RecordBlocked()
	RecordDuplicate()
}

// Deps are the collaborators of the manager. Extractor and Summarizer are optional, Metrics defaults to no-op.
type Deps struct {
	Parser     Parser
	Articles   Articles
	Filters    Filters
	Topics     Topics
	Extractor  Extractor
	Summarizer Summarizer
	Metrics    Recorder
}

// Opts tunes the manager
type Opts struct {
	Now      func() time.Time
	MaxItems int
}

// Manager is the feed catalog and the ingestion pipeline
type Manager struct {
	feeds     *store.Collection[domain.Feed]
	mu        sync.Mutex
	deps      Deps
	now       func() time.Time
	maxItems  int
	generator *Generator
}

// NewManager makes a feed manager on top of the store
func NewManager(s *store.Store, deps Deps, opts Opts) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	gen := NewGenerator("")
	gen.now = opts.Now
	return &Manager{
		feeds:     store.NewCollection[domain.Feed](s, store.KeyFeeds),
		deps:      deps,
		now:       opts.Now,
		maxItems:  opts.MaxItems,
		generator: gen,
	}
}

// List returns all feeds in stored order
func (m *Manager) List(ctx context.Context) ([]domain.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// Get returns a feed by id
func (m *Manager) Get(ctx context.Context, id int64) (domain.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return domain.Feed{}, err
	}
	idx := indexOf(feeds, id)
	if idx < 0 {
		return domain.Feed{}, fmt.Errorf("feed %d: %w", id, domain.ErrNotFound)
	}
	return feeds[idx], nil
}

// Create adds a feed in front of the list. Empty name is derived from the url domain.
func (m *Manager) Create(ctx context.Context, in domain.FeedInput) (domain.Feed, error) {
	feedURL := strings.TrimSpace(in.URL)
	if !domain.ValidFeedURL(feedURL) {
		return domain.Feed{}, fmt.Errorf("feed %q: %w", in.URL, domain.ErrInvalidURL)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = nameFromURL(feedURL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return domain.Feed{}, err
	}

	now := m.now()
	f := domain.Feed{
		ID:        nextID(feeds),
		Name:      name,
		URL:       feedURL,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	feeds = append([]domain.Feed{f}, feeds...)
	if err := m.save(ctx, feeds); err != nil {
		return domain.Feed{}, err
	}
	log.Printf("[INFO] feed %d %q created for %s", f.ID, f.Name, f.URL)
	return f, nil
}

// Update changes the given fields of a feed, a changed url is validated again.
// A blank name is derived from the url as on create.
func (m *Manager) Update(ctx context.Context, id int64, upd domain.FeedUpdate) (domain.Feed, error) {
	if upd.URL != nil {
		u := strings.TrimSpace(*upd.URL)
		if !domain.ValidFeedURL(u) {
			return domain.Feed{}, fmt.Errorf("feed %q: %w", *upd.URL, domain.ErrInvalidURL)
		}
		upd.URL = &u
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return domain.Feed{}, err
	}
	idx := indexOf(feeds, id)
	if idx < 0 {
		return domain.Feed{}, fmt.Errorf("feed %d: %w", id, domain.ErrNotFound)
	}

	f := &feeds[idx]
	if upd.Name != nil {
		f.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.URL != nil {
		f.URL = *upd.URL
	}
	if upd.IsActive != nil {
		f.IsActive = *upd.IsActive
	}
	if f.Name == "" {
		f.Name = nameFromURL(f.URL)
	}
	f.UpdatedAt = m.now()

	if err := m.save(ctx, feeds); err != nil {
		return domain.Feed{}, err
	}
	return *f, nil
}

// Delete removes a feed, its articles are kept
func (m *Manager) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(feeds, id)
	if idx < 0 {
		return fmt.Errorf("feed %d: %w", id, domain.ErrNotFound)
	}
	feeds = append(feeds[:idx], feeds[idx+1:]...)
	return m.save(ctx, feeds)
}

// ResetErrors clears the error counter and last error of a feed
func (m *Manager) ResetErrors(ctx context.Context, id int64) (domain.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return domain.Feed{}, err
	}
	idx := indexOf(feeds, id)
	if idx < 0 {
		return domain.Feed{}, fmt.Errorf("feed %d: %w", id, domain.ErrNotFound)
	}
	feeds[idx].ErrorCount = 0
	feeds[idx].LastError = ""
	feeds[idx].UpdatedAt = m.now()
	if err := m.save(ctx, feeds); err != nil {
		return domain.Feed{}, err
	}
	return feeds[idx], nil
}

// FetchFeed fetches the feed and ingests its new entries as articles.
// Failures bump the error counter and are returned, success leaves the counter as is.
func (m *Manager) FetchFeed(ctx context.Context, id int64) (domain.FetchResult, error) {
	f, err := m.Get(ctx, id)
	if err != nil {
		return domain.FetchResult{}, err
	}

	st := time.Now()
	parsed, fetchErr := m.deps.Parser.Parse(ctx, f.URL)
	newArticles := 0
	if fetchErr == nil {
		newArticles = m.ingest(ctx, f, parsed)
	}
	m.deps.Metrics.RecordFetch(fetchErr == nil, time.Since(st))

	m.mu.Lock()
	defer m.mu.Unlock()

	feeds, err := m.load(ctx)
	if err != nil {
		return domain.FetchResult{}, err
	}
	idx := indexOf(feeds, id)
	if idx < 0 {
		return domain.FetchResult{}, fmt.Errorf("feed %d removed during fetch: %w", id, domain.ErrNotFound)
	}

	now := m.now()
	stored := &feeds[idx]
	stored.LastFetched = &now
	if fetchErr != nil {
		stored.ErrorCount++
		stored.LastError = fetchErr.Error()
	} else {
		stored.ArticleCount += newArticles
	}
	if err := m.save(ctx, feeds); err != nil {
		return domain.FetchResult{}, err
	}

	if fetchErr != nil {
		log.Printf("[WARN] feed %d %q fetch failed, errors %d: %v", id, stored.Name, stored.ErrorCount, fetchErr)
		return domain.FetchResult{TotalArticles: stored.ArticleCount}, fmt.Errorf("fetch feed %d: %w", id, fetchErr)
	}
	log.Printf("[INFO] feed %d %q fetched, %d new articles", id, stored.Name, newArticles)
	return domain.FetchResult{Success: true, NewArticles: newArticles, TotalArticles: stored.ArticleCount}, nil
}

// TestFeed probes a feed url without storing anything. Fetch failures are reported in the result.
func (m *Manager) TestFeed(ctx context.Context, feedURL string) (domain.FeedTestResult, error) {
	feedURL = strings.TrimSpace(feedURL)
	if !domain.ValidFeedURL(feedURL) {
		return domain.FeedTestResult{}, fmt.Errorf("feed %q: %w", feedURL, domain.ErrInvalidURL)
	}

	parsed, err := m.deps.Parser.Parse(ctx, feedURL)
	if err != nil {
		log.Printf("[DEBUG] test of %s failed: %v", feedURL, err)
		return domain.FeedTestResult{Valid: false, Error: err.Error()}, nil
	}

	title := parsed.Title
	if title == "" {
		title = nameFromURL(feedURL)
	}
	return domain.FeedTestResult{
		Valid:        true,
		Title:        title,
		ArticleCount: len(parsed.Items),
		LastUpdated:  parsed.Updated,
	}, nil
}

// ExportOPML renders active feeds as an OPML document
func (m *Manager) ExportOPML(ctx context.Context) (string, error) {
	feeds, err := m.List(ctx)
	if err != nil {
		return "", err
	}
	return m.generator.GenerateOPML(feeds)
}

func (m *Manager) load(ctx context.Context) ([]domain.Feed, error) {
	feeds, err := m.feeds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	return feeds, nil
}

func (m *Manager) save(ctx context.Context, feeds []domain.Feed) error {
	if err := m.feeds.Save(ctx, feeds); err != nil {
		return fmt.Errorf("save feeds: %w", err)
	}
	return nil
}

// nameFromURL returns the registrable domain of the url, or its host when that can't be found
func nameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := u.Hostname()
	if name, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return name
	}
	return host
}

func indexOf(feeds []domain.Feed, id int64) int {
	for i := range feeds {
		if feeds[i].ID == id {
			return i
		}
	}
	return -1
}

func nextID(feeds []domain.Feed) int64 {
	var maxID int64
	for _, f := range feeds {
		maxID = max(maxID, f.ID)
	}
	return maxID + 1
}
