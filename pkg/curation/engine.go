// Package curation implements the article query engine: filtering, sorting and pagination
// over the stored article collection, together with bookmark and read state tracking.
package curation

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/store"
)

// query defaults
const (
	DefaultPage   = 1
	DefaultLimit  = 12
	relatedLimit  = 5
	defaultLocale = "en"
)

// Engine answers article queries and owns article, bookmark and read collections.
// All operations load the collections, work on the copy and save what changed, serialized by mu.
type Engine struct {
	articles  *store.Collection[domain.Article]
	bookmarks *store.Collection[int64]
	read      *store.Collection[int64]

	mu       sync.Mutex // guards load-mutate-save cycles and the collator
	collator *collate.Collator
	now      func() time.Time
}

// Opts defines optional engine parameters
type Opts struct {
	Locale string           // collation locale for title sort, "en" by default
	Now    func() time.Time // clock, time.Now by default
}

// snapshot is a consistent copy of the collections owned by the engine
type snapshot struct {
	articles  []domain.Article
	bookmarks []int64
	read      []int64
}

// New makes an engine on top of the store
func New(s *store.Store, opts Opts) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale == "" {
		opts.Locale = defaultLocale
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		log.Printf("[WARN] unknown collation locale %q, using %s: %v", opts.Locale, defaultLocale, err)
		tag = language.English
	}

	return &Engine{
		articles:  store.NewCollection[domain.Article](s, store.KeyArticles),
		bookmarks: store.NewCollection[int64](s, store.KeyBookmarks),
		read:      store.NewCollection[int64](s, store.KeyReadArticles),
		collator:  collate.New(tag, collate.IgnoreCase),
		now:       opts.Now,
	}
}

// Query returns one page of articles matching the criteria, decorated with bookmark and read state
func (e *Engine) Query(ctx context.Context, c domain.Criteria) ([]domain.ArticleView, error) {
	sortBy := c.SortBy
	if sortBy == "" {
		sortBy = domain.SortByPublishDate
	}
	if !validSort(sortBy) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSort, c.SortBy)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Article, 0, len(snap.articles))
	for _, a := range snap.articles {
		if matches(a, c) {
			matched = append(matched, a)
		}
	}

	e.sortArticles(matched, sortBy)

	return snap.views(paginate(matched, c.Page, c.Limit)), nil
}

// Get returns a single article by id
func (e *Engine) Get(ctx context.Context, id int64) (domain.ArticleView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return domain.ArticleView{}, err
	}
	idx := indexOf(snap.articles, id)
	if idx < 0 {
		return domain.ArticleView{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return snap.view(snap.articles[idx]), nil
}

// Bookmarks returns bookmarked articles, most recently bookmarked first.
// Bookmarks pointing to deleted articles are skipped.
func (e *Engine) Bookmarks(ctx context.Context) ([]domain.ArticleView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]domain.ArticleView, 0, len(snap.bookmarks))
	for i := len(snap.bookmarks) - 1; i >= 0; i-- {
		if idx := indexOf(snap.articles, snap.bookmarks[i]); idx >= 0 {
			res = append(res, snap.view(snap.articles[idx]))
		}
	}
	return res, nil
}

// ToggleBookmark sets the bookmark state of an article. The id is not checked against
// the article collection, setting the same state twice is a no-op.
func (e *Engine) ToggleBookmark(ctx context.Context, id int64, bookmarked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.bookmarks.Load(ctx)
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}

	has := slices.Contains(ids, id)
	switch {
	case bookmarked && !has:
		ids = append(ids, id)
	case !bookmarked && has:
		ids = slices.DeleteFunc(ids, func(v int64) bool { return v == id })
	}

	if err := e.bookmarks.Save(ctx, ids); err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	return nil
}

// MarkAsRead adds the article to the read set, persisting only when the set changes
func (e *Engine) MarkAsRead(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.read.Load(ctx)
	if err != nil {
		return fmt.Errorf("load read articles: %w", err)
	}
	if slices.Contains(ids, id) {
		return nil
	}
	if err := e.read.Save(ctx, append(ids, id)); err != nil {
		return fmt.Errorf("save read articles: %w", err)
	}
	return nil
}

// Related returns up to five articles sharing at least one topic with the given one,
// in natural collection order. Unknown ids produce an empty result.
func (e *Engine) Related(ctx context.Context, id int64) ([]domain.ArticleView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	res := []domain.ArticleView{}
	idx := indexOf(snap.articles, id)
	if idx < 0 {
		return res, nil
	}
	src := snap.articles[idx]

	for _, a := range snap.articles {
		if len(res) >= relatedLimit {
			break
		}
		if a.ID == src.ID || !a.HasTopic(src.Topics...) {
			continue
		}
		res = append(res, snap.view(a))
	}
	return res, nil
}

// Stats aggregates counters over the whole collection. Today means the local calendar day of the clock.
func (e *Engine) Stats(ctx context.Context) (domain.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	res := domain.Stats{
		TotalArticles:      len(snap.articles),
		BookmarkedArticles: len(snap.bookmarks),
		ReadArticles:       len(snap.read),
	}
	ty, tm, td := e.now().Local().Date()
	for _, a := range snap.articles {
		if y, m, d := a.PublishDate.Local().Date(); y == ty && m == tm && d == td {
			res.TodayArticles++
		}
		if a.IsSummarized {
			res.SummarizedArticles++
		}
	}
	return res, nil
}

// Create adds a new article at the front of the collection
func (e *Engine) Create(ctx context.Context, in domain.ArticleInput) (domain.Article, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Article{}, fmt.Errorf("article title: %w", domain.ErrEmptyField)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return domain.Article{}, fmt.Errorf("load articles: %w", err)
	}
	return e.create(ctx, articles, in)
}

// CreateIfAbsent adds the article unless one with the same url or title is stored.
// The check and the write happen under one lock, false means a duplicate was found and nothing was written.
func (e *Engine) CreateIfAbsent(ctx context.Context, in domain.ArticleInput) (domain.Article, bool, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Article{}, false, fmt.Errorf("article title: %w", domain.ErrEmptyField)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("load articles: %w", err)
	}
	if hasDuplicate(articles, in.URL, in.Title) {
		return domain.Article{}, false, nil
	}
	a, err := e.create(ctx, articles, in)
	if err != nil {
		return domain.Article{}, false, err
	}
	return a, true, nil
}

// create prepends a new article to loaded articles and saves them, caller holds the lock
func (e *Engine) create(ctx context.Context, articles []domain.Article, in domain.ArticleInput) (domain.Article, error) {
	now := e.now()
	a := domain.Article{
		ID:           nextID(articles),
		FeedID:       in.FeedID,
		Title:        in.Title,
		URL:          in.URL,
		Summary:      in.Summary,
		KeyPoints:    in.KeyPoints,
		Source:       in.Source,
		PublishDate:  in.PublishDate,
		Topics:       in.Topics,
		IsSummarized: in.IsSummarized,
		ReadTime:     in.ReadTime,
		CreatedAt:    now,
	}
	if a.PublishDate.IsZero() {
		a.PublishDate = now
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	if a.ReadTime <= 0 {
		a.ReadTime = domain.EstimateReadTime(a.Title + " " + a.Summary)
	}

	if err := e.articles.Save(ctx, append([]domain.Article{a}, articles...)); err != nil {
		return domain.Article{}, fmt.Errorf("save articles: %w", err)
	}
	log.Printf("[DEBUG] created article %d: %s", a.ID, a.Title)
	return a, nil
}

// Update merges the non-nil fields of upd into the article and stamps updatedAt
func (e *Engine) Update(ctx context.Context, id int64, upd domain.ArticleUpdate) (domain.Article, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return domain.Article{}, fmt.Errorf("article title: %w", domain.ErrEmptyField)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return domain.Article{}, fmt.Errorf("load articles: %w", err)
	}
	idx := indexOf(articles, id)
	if idx < 0 {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}

	a := articles[idx]
	if upd.Title != nil {
		a.Title = *upd.Title
	}
	if upd.URL != nil {
		a.URL = *upd.URL
	}
	if upd.Summary != nil {
		a.Summary = *upd.Summary
	}
	if upd.KeyPoints != nil {
		a.KeyPoints = upd.KeyPoints
	}
	if upd.PublishDate != nil {
		a.PublishDate = *upd.PublishDate
	}
	if upd.Topics != nil {
		a.Topics = upd.Topics
	}
	if upd.IsSummarized != nil {
		a.IsSummarized = *upd.IsSummarized
	}
	if upd.ReadTime != nil {
		a.ReadTime = *upd.ReadTime
	}
	now := e.now()
	a.UpdatedAt = &now
	articles[idx] = a

	if err := e.articles.Save(ctx, articles); err != nil {
		return domain.Article{}, fmt.Errorf("save articles: %w", err)
	}
	return a, nil
}

// Delete removes the article and drops it from the bookmark and read sets.
// The three collections are saved one after another, a failure in between leaves orphaned ids.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	idx := indexOf(articles, id)
	if idx < 0 {
		return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	if err := e.articles.Save(ctx, slices.Delete(articles, idx, idx+1)); err != nil {
		return fmt.Errorf("save articles: %w", err)
	}

	for _, c := range []*store.Collection[int64]{e.bookmarks, e.read} {
		ids, err := c.Load(ctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", c.Key(), err)
		}
		if !slices.Contains(ids, id) {
			continue
		}
		ids = slices.DeleteFunc(ids, func(v int64) bool { return v == id })
		if err := c.Save(ctx, ids); err != nil {
			return fmt.Errorf("save %s: %w", c.Key(), err)
		}
	}

	log.Printf("[DEBUG] deleted article %d", id)
	return nil
}

// Exists reports whether an article with the same url or title (case-insensitive) is already stored
func (e *Engine) Exists(ctx context.Context, url, title string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load articles: %w", err)
	}
	return hasDuplicate(articles, url, title), nil
}

func hasDuplicate(articles []domain.Article, url, title string) bool {
	title = strings.TrimSpace(title)
	for _, a := range articles {
		if url != "" && a.URL == url {
			return true
		}
		if title != "" && strings.EqualFold(strings.TrimSpace(a.Title), title) {
			return true
		}
	}
	return false
}

// Analytics breaks down articles published at or after since by feed and topic.
// Topics are ordered by count descending, ties by name.
func (e *Engine) Analytics(ctx context.Context, since time.Time) (domain.Breakdown, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	articles, err := e.articles.Load(ctx)
	if err != nil {
		return domain.Breakdown{}, fmt.Errorf("load articles: %w", err)
	}

	res := domain.Breakdown{Since: since, ByFeed: map[int64]int{}, TopTopics: []domain.TopicCount{}}
	topics := map[string]int{}
	for _, a := range articles {
		if a.PublishDate.Before(since) {
			continue
		}
		res.RecentArticles++
		res.ByFeed[a.FeedID]++
		for _, t := range a.Topics {
			topics[t]++
		}
	}

	for name, cnt := range topics {
		res.TopTopics = append(res.TopTopics, domain.TopicCount{Topic: name, Count: cnt})
	}
	sort.Slice(res.TopTopics, func(i, j int) bool {
		if res.TopTopics[i].Count != res.TopTopics[j].Count {
			return res.TopTopics[i].Count > res.TopTopics[j].Count
		}
		return res.TopTopics[i].Topic < res.TopTopics[j].Topic
	})
	return res, nil
}

func (e *Engine) load(ctx context.Context) (snapshot, error) {
	articles, err := e.articles.Load(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load articles: %w", err)
	}
	bookmarks, err := e.bookmarks.Load(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load bookmarks: %w", err)
	}
	read, err := e.read.Load(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load read articles: %w", err)
	}
	return snapshot{articles: articles, bookmarks: bookmarks, read: read}, nil
}

// sortArticles orders articles in place, ties keep their relative order
func (e *Engine) sortArticles(articles []domain.Article, by domain.SortBy) {
	switch by {
	case domain.SortByTitle:
		sort.SliceStable(articles, func(i, j int) bool {
			return e.collator.CompareString(articles[i].Title, articles[j].Title) < 0
		})
	case domain.SortByPopularity:
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].ReadTime > articles[j].ReadTime
		})
	default:
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishDate.After(articles[j].PublishDate)
		})
	}
}

func (s snapshot) view(a domain.Article) domain.ArticleView {
	return domain.ArticleView{
		Article:      a,
		IsBookmarked: slices.Contains(s.bookmarks, a.ID),
		IsRead:       slices.Contains(s.read, a.ID),
	}
}

func (s snapshot) views(articles []domain.Article) []domain.ArticleView {
	res := make([]domain.ArticleView, 0, len(articles))
	for _, a := range articles {
		res = append(res, s.view(a))
	}
	return res
}

// matches applies all filter criteria, conjunctively
func matches(a domain.Article, c domain.Criteria) bool {
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Summary), q) {
			return false
		}
	}
	if len(c.Topics) > 0 && !a.HasTopic(c.Topics...) {
		return false
	}
	if c.IsSummarized != nil && a.IsSummarized != *c.IsSummarized {
		return false
	}
	if c.FeedID != 0 && a.FeedID != c.FeedID {
		return false
	}
	if !c.Since.IsZero() && a.PublishDate.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && !a.PublishDate.Before(c.Until) {
		return false
	}
	return true
}

// paginate returns the [(page-1)*limit, page*limit) window clamped to the slice
func paginate[T any](items []T, page, limit int) []T {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	// compare before multiplying, page*limit can overflow int
	if len(items) == 0 || page-1 > (len(items)-1)/limit {
		return []T{}
	}
	start := (page - 1) * limit
	end := start + min(limit, len(items)-start)
	return items[start:end]
}

func validSort(by domain.SortBy) bool {
	switch by {
	case domain.SortByPublishDate, domain.SortByTitle, domain.SortByPopularity:
		return true
	}
	return false
}

func indexOf(articles []domain.Article, id int64) int {
	return slices.IndexFunc(articles, func(a domain.Article) bool { return a.ID == id })
}

func nextID(articles []domain.Article) int64 {
	var maxID int64
	for _, a := range articles {
		maxID = max(maxID, a.ID)
	}
	return maxID + 1
}
