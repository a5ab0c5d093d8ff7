package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedflow/pkg/config"
	"github.com/umputun/feedflow/pkg/curation"
	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/feed"
	feedmocks "github.com/umputun/feedflow/pkg/feed/mocks"
	"github.com/umputun/feedflow/pkg/filter"
	"github.com/umputun/feedflow/pkg/metrics"
	"github.com/umputun/feedflow/pkg/scheduler"
	"github.com/umputun/feedflow/pkg/store"
	"github.com/umputun/feedflow/pkg/topic"
	"github.com/umputun/feedflow/server/mocks"
)

var fixedNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

// setupTestServer makes a server over the bundled seed data in an in-memory store
func setupTestServer(t *testing.T, svc Services) (*Server, *feedmocks.ParserMock) {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, store.Config{DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, store.EmbeddedSeed{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := func() time.Time { return fixedNow }
	parser := &feedmocks.ParserMock{ParseFunc: func(ctx context.Context, url string) (*domain.ParsedFeed, error) {
		return nil, errors.New("unexpected status code: 503")
	}}
	articles := curation.New(s, curation.Opts{Now: clock})
	filters := filter.New(s, clock)
	topics := topic.New(s, clock)
	feeds := feed.NewManager(s, feed.Deps{Parser: parser, Articles: articles, Filters: filters, Topics: topics}, feed.Opts{Now: clock})

	svc.Articles, svc.Feeds, svc.Filters, svc.Topics = articles, feeds, filters, topics
	srv := New(config.ServerConfig{Listen: "127.0.0.1:0", Timeout: 5 * time.Second, BaseURL: "http://feedflow.example.com", RSSLimit: 50},
		svc, "1.2.3", false)
	srv.now = clock
	return srv, parser
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var res T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func articleIDs(articles []domain.ArticleView) []int64 {
	res := make([]int64, 0, len(articles))
	for _, a := range articles {
		res = append(res, a.ID)
	}
	return res
}

func TestServer_Run(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	srv, _ := setupTestServer(t, Services{})
	srv.cfg.Listen = fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "feedflow", resp.Header.Get("App-Name"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_Status(t *testing.T) {
	sched := &mocks.SchedulerMock{
		RunningFunc:   func() bool { return true },
		LastRoundFunc: func() *scheduler.RoundResult { return &scheduler.RoundResult{Feeds: 3, Failed: 1, NewArticles: 4} },
	}
	srv, _ := setupTestServer(t, Services{Scheduler: sched})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status struct {
		Status    string    `json:"status"`
		Version   string    `json:"version"`
		Time      time.Time `json:"time"`
		Scheduler struct {
			Running   bool                  `json:"running"`
			LastRound scheduler.RoundResult `json:"lastRound"`
		} `json:"scheduler"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.True(t, fixedNow.Equal(status.Time))
	assert.True(t, status.Scheduler.Running)
	assert.Equal(t, 4, status.Scheduler.LastRound.NewArticles)
	assert.Len(t, sched.RunningCalls(), 1)

	srv, _ = setupTestServer(t, Services{})
	w = doRequest(t, srv, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "scheduler")
}

func TestServer_Articles(t *testing.T) {
	t.Run("query with filters", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})

		w := doRequest(t, srv, http.MethodGet, "/api/v1/articles", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{8, 7, 6, 4, 5, 3, 2, 1}, articleIDs(decode[[]domain.ArticleView](t, w)))

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles?topics=Space,AI", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[[]domain.ArticleView](t, w)
		assert.Equal(t, []int64{8, 4}, articleIDs(res))
		assert.True(t, res[0].IsBookmarked)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles?topics=Health&isSummarized=true&sortBy=title", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{3, 1}, articleIDs(decode[[]domain.ArticleView](t, w)))

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles?page=2&limit=3", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{4, 5, 3}, articleIDs(decode[[]domain.ArticleView](t, w)))

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles?search=mars&since=2024-01-01", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{4}, articleIDs(decode[[]domain.ArticleView](t, w)))
	})

	t.Run("bad query", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})
		for _, q := range []string{"sortBy=random", "page=x", "isSummarized=maybe", "since=yesterday", "feedId=abc"} {
			w := doRequest(t, srv, http.MethodGet, "/api/v1/articles?"+q, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"], q)
		}
	})

	t.Run("get, related and not found", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})
		w := doRequest(t, srv, http.MethodGet, "/api/v1/articles/6", "")
		require.Equal(t, http.StatusOK, w.Code)
		a := decode[domain.ArticleView](t, w)
		assert.Equal(t, int64(6), a.ID)
		assert.True(t, a.IsRead)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/99", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decode[map[string]string](t, w)["error"], "not found")

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/4/related", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{3}, articleIDs(decode[[]domain.ArticleView](t, w)))
	})

	t.Run("bookmarks, read and stats", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})

		w := doRequest(t, srv, http.MethodGet, "/api/v1/articles/bookmarks", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{4, 8}, articleIDs(decode[[]domain.ArticleView](t, w)))

		w = doRequest(t, srv, http.MethodPut, "/api/v1/articles/2/bookmark", `{"bookmarked": true}`)
		require.Equal(t, http.StatusOK, w.Code)
		w = doRequest(t, srv, http.MethodPut, "/api/v1/articles/8/bookmark", `{"bookmarked": false}`)
		require.Equal(t, http.StatusOK, w.Code)
		w = doRequest(t, srv, http.MethodPut, "/api/v1/articles/8/bookmark", `not json`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/bookmarks", "")
		assert.Equal(t, []int64{2, 4}, articleIDs(decode[[]domain.ArticleView](t, w)))

		w = doRequest(t, srv, http.MethodPost, "/api/v1/articles/1/read", "")
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/stats", "")
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[domain.Stats](t, w)
		assert.Equal(t, 8, stats.TotalArticles)
		assert.Equal(t, 2, stats.BookmarkedArticles)
		assert.Equal(t, 2, stats.ReadArticles)
		assert.Equal(t, 5, stats.SummarizedArticles)
	})

	t.Run("create, update and delete", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})

		w := doRequest(t, srv, http.MethodPost, "/api/v1/articles", `{"title": "Manual entry", "url": "https://example.com/m", "topics": ["Space"]}`)
		require.Equal(t, http.StatusCreated, w.Code)
		created := decode[domain.Article](t, w)
		assert.Equal(t, int64(9), created.ID)
		assert.True(t, fixedNow.Equal(created.PublishDate))

		w = doRequest(t, srv, http.MethodPost, "/api/v1/articles", `{"title": " "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(t, srv, http.MethodPatch, "/api/v1/articles/9", `{"summary": "now with summary", "isSummarized": true}`)
		require.Equal(t, http.StatusOK, w.Code)
		updated := decode[domain.Article](t, w)
		assert.Equal(t, "now with summary", updated.Summary)
		assert.True(t, updated.IsSummarized)
		require.NotNil(t, updated.UpdatedAt)

		w = doRequest(t, srv, http.MethodPatch, "/api/v1/articles/99", `{"summary": "x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(t, srv, http.MethodDelete, "/api/v1/articles/8", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = doRequest(t, srv, http.MethodDelete, "/api/v1/articles/8", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/bookmarks", "")
		assert.Equal(t, []int64{4}, articleIDs(decode[[]domain.ArticleView](t, w)), "delete cascades to bookmarks")
	})

	t.Run("analytics", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})

		w := doRequest(t, srv, http.MethodGet, "/api/v1/articles/analytics?days=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[domain.Breakdown](t, w)
		assert.Equal(t, 5, res.RecentArticles)
		assert.Equal(t, map[int64]int{4: 2, 3: 2, 2: 1}, res.ByFeed)
		require.Len(t, res.TopTopics, 5)
		assert.Equal(t, domain.TopicCount{Topic: "Technology", Count: 3}, res.TopTopics[0])
		assert.Equal(t, domain.TopicCount{Topic: "Business", Count: 2}, res.TopTopics[1])

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/analytics?since=2024-01-03T00:00:00Z", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, decode[domain.Breakdown](t, w).RecentArticles)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/analytics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 8, decode[domain.Breakdown](t, w).RecentArticles)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/articles/analytics?days=-1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Feeds(t *testing.T) {
	type feedJSON struct {
		domain.Feed
		Status domain.FeedStatus `json:"status"`
	}

	t.Run("list with status", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})
		w := doRequest(t, srv, http.MethodGet, "/api/v1/feeds", "")
		require.Equal(t, http.StatusOK, w.Code)
		feeds := decode[[]feedJSON](t, w)
		require.Len(t, feeds, 4)
		statuses := map[int64]domain.FeedStatus{}
		for _, f := range feeds {
			statuses[f.ID] = f.Status
		}
		assert.Equal(t, map[int64]domain.FeedStatus{
			4: domain.FeedActive, 3: domain.FeedWarning, 2: domain.FeedFailed, 1: domain.FeedDisabled,
		}, statuses)
	})

	t.Run("create, update, delete", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})
		w := doRequest(t, srv, http.MethodPost, "/api/v1/feeds", `{"name": "Go Blog", "url": "https://go.dev/blog/feed.atom", "isActive": true}`)
		require.Equal(t, http.StatusCreated, w.Code)
		created := decode[feedJSON](t, w)
		assert.Equal(t, int64(5), created.ID)
		assert.Equal(t, domain.FeedActive, created.Status)

		w = doRequest(t, srv, http.MethodPost, "/api/v1/feeds", `{"name": "bad", "url": "go.dev/blog"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(t, srv, http.MethodPatch, "/api/v1/feeds/5", `{"isActive": false}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.FeedDisabled, decode[feedJSON](t, w).Status)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/feeds/5", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Go Blog", decode[feedJSON](t, w).Name)

		w = doRequest(t, srv, http.MethodDelete, "/api/v1/feeds/5", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = doRequest(t, srv, http.MethodGet, "/api/v1/feeds/5", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("fetch failure and reset", func(t *testing.T) {
		srv, parser := setupTestServer(t, Services{})

		w := doRequest(t, srv, http.MethodPost, "/api/v1/feeds/3/fetch", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "503")
		require.Len(t, parser.ParseCalls(), 1)

		w = doRequest(t, srv, http.MethodGet, "/api/v1/feeds/3", "")
		f := decode[feedJSON](t, w)
		assert.Equal(t, 3, f.ErrorCount)
		require.NotNil(t, f.LastFetched)

		w = doRequest(t, srv, http.MethodPost, "/api/v1/feeds/99/fetch", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(t, srv, http.MethodPost, "/api/v1/feeds/3/reset", "")
		require.Equal(t, http.StatusOK, w.Code)
		f = decode[feedJSON](t, w)
		assert.Zero(t, f.ErrorCount)
		assert.Equal(t, domain.FeedActive, f.Status)
	})

	t.Run("fetch success", func(t *testing.T) {
		srv, parser := setupTestServer(t, Services{})
		parser.ParseFunc = func(ctx context.Context, url string) (*domain.ParsedFeed, error) {
			return &domain.ParsedFeed{Items: []domain.ParsedItem{{Title: "Fresh story about AI", Link: "https://arstechnica.com/fresh"}}}, nil
		}
		w := doRequest(t, srv, http.MethodPost, "/api/v1/feeds/4/fetch", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.FetchResult{Success: true, NewArticles: 1, TotalArticles: 3}, decode[domain.FetchResult](t, w))
	})

	t.Run("test feed", func(t *testing.T) {
		srv, parser := setupTestServer(t, Services{})
		parser.ParseFunc = func(ctx context.Context, url string) (*domain.ParsedFeed, error) {
			return &domain.ParsedFeed{Title: "Probe", Items: make([]domain.ParsedItem, 3)}, nil
		}
		w := doRequest(t, srv, http.MethodPost, "/api/v1/feeds/test", `{"url": "https://probe.example.com/rss"}`)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[domain.FeedTestResult](t, w)
		assert.True(t, res.Valid)
		assert.Equal(t, "Probe", res.Title)
		assert.Equal(t, 3, res.ArticleCount)

		w = doRequest(t, srv, http.MethodPost, "/api/v1/feeds/test", `{"url": "probe"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("opml", func(t *testing.T) {
		srv, _ := setupTestServer(t, Services{})
		w := doRequest(t, srv, http.MethodGet, "/api/v1/feeds/opml", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/x-opml; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `text="Ars Technica"`)
		assert.NotContains(t, w.Body.String(), `text="Health News"`, "inactive feed excluded")
	})
}

func TestServer_Filters(t *testing.T) {
	srv, _ := setupTestServer(t, Services{})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/filters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Filter](t, w), 3)

	w = doRequest(t, srv, http.MethodPost, "/api/v1/filters", `{"keyword": "SPONSORED", "isActive": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "already exists")

	w = doRequest(t, srv, http.MethodPost, "/api/v1/filters", `{"keyword": "crypto", "isActive": true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Filter](t, w)
	assert.Equal(t, int64(4), created.ID)

	w = doRequest(t, srv, http.MethodPatch, "/api/v1/filters/4", `{"isActive": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[domain.Filter](t, w).IsActive)

	w = doRequest(t, srv, http.MethodGet, "/api/v1/filters/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.FilterStats{TotalFilters: 4, ActiveFilters: 2, TotalBlocked: 17, AverageBlocked: 4}, decode[domain.FilterStats](t, w))

	w = doRequest(t, srv, http.MethodPost, "/api/v1/filters/test", `{"keyword": "deal", "text": "Best DEALS of the week"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[domain.FilterTestResult](t, w)
	assert.True(t, res.Matches)
	assert.Equal(t, "Best DEALS of the week...", res.TestText)

	w = doRequest(t, srv, http.MethodDelete, "/api/v1/filters/4", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(t, srv, http.MethodGet, "/api/v1/filters/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Topics(t *testing.T) {
	srv, _ := setupTestServer(t, Services{})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/topics/popular?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	popular := decode[[]domain.Topic](t, w)
	require.Len(t, popular, 2)
	assert.Equal(t, []string{"Technology", "Health"}, []string{popular[0].Name, popular[1].Name})

	w = doRequest(t, srv, http.MethodGet, "/api/v1/topics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Science", decode[[]domain.Topic](t, w)[1].Name, "popular does not reorder storage")

	w = doRequest(t, srv, http.MethodPost, "/api/v1/topics", `{"name": "Climate Change"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Topic](t, w)
	assert.Equal(t, "climate-change", created.Slug)

	w = doRequest(t, srv, http.MethodPost, "/api/v1/topics", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/api/v1/topics/count", `{"name": "Space", "delta": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[domain.Topic](t, w).ArticleCount)

	w = doRequest(t, srv, http.MethodPost, "/api/v1/topics/count", `{"name": "Nope", "delta": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, srv, http.MethodPatch, fmt.Sprintf("/api/v1/topics/%d", created.ID), `{"name": "Climate"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Climate", decode[domain.Topic](t, w).Name)

	w = doRequest(t, srv, http.MethodGet, "/api/v1/topics/6", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Space", decode[domain.Topic](t, w).Name)

	w = doRequest(t, srv, http.MethodDelete, "/api/v1/topics/6", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(t, srv, http.MethodGet, "/api/v1/topics/6", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RSS(t *testing.T) {
	srv, _ := setupTestServer(t, Services{})

	w := doRequest(t, srv, http.MethodGet, "/rss?topics=Health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>FeedFlow - Health</title>")
	assert.Contains(t, body, `href="http://feedflow.example.com/rss?topics=Health"`)
	assert.Contains(t, body, "Sleep quality linked to memory")
	assert.Contains(t, body, "Mediterranean diet and heart health")
	assert.NotContains(t, body, "Ice deposits found near Mars equator")

	w = doRequest(t, srv, http.MethodGet, "/rss?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), "<item>"))

	w = doRequest(t, srv, http.MethodGet, "/rss?page=bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, decode[map[string]string](t, w)["error"], "page")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordIngested(3)

	srv, _ := setupTestServer(t, Services{Gatherer: reg})
	w := doRequest(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "feedflow_articles_ingested_total 3")

	srv, _ = setupTestServer(t, Services{})
	w = doRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseCriteria(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?topics=AI,+Space&topics=Health&isSummarized=false&feedId=3&page=2&limit=5&sortBy=title&search=+go+&until=2024-01-02T10:00:00Z", http.NoBody)
	c, err := parseCriteria(req.URL.Query())
	require.NoError(t, err)
	assert.Equal(t, []string{"AI", "Space", "Health"}, c.Topics)
	require.NotNil(t, c.IsSummarized)
	assert.False(t, *c.IsSummarized)
	assert.Equal(t, int64(3), c.FeedID)
	assert.Equal(t, 2, c.Page)
	assert.Equal(t, 5, c.Limit)
	assert.Equal(t, domain.SortByTitle, c.SortBy)
	assert.Equal(t, "go", c.Search)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), c.Until.UTC())
	assert.True(t, c.Since.IsZero())

	c, err = parseCriteria(httptest.NewRequest(http.MethodGet, "/", http.NoBody).URL.Query())
	require.NoError(t, err)
	assert.Equal(t, domain.Criteria{}, c)
}
