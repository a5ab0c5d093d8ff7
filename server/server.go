// Package server exposes the curation engine and catalogs over a JSON HTTP API
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/umputun/feedflow/pkg/config"
	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/feed"
	"github.com/umputun/feedflow/pkg/metrics"
	"github.com/umputun/feedflow/pkg/scheduler"
)

//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler

// defaultAnalyticsDays is the analytics window when no since is given
const defaultAnalyticsDays = 7

// Articles is the curation engine
type Articles interface {
	Query(ctx context.Context, c domain.Criteria) ([]domain.ArticleView, error)
	Get(ctx context.Context, id int64) (domain.ArticleView, error)
	Bookmarks(ctx context.Context) ([]domain.ArticleView, error)
	ToggleBookmark(ctx context.Context, id int64, bookmarked bool) error
	MarkAsRead(ctx context.Context, id int64) error
	Related(ctx context.Context, id int64) ([]domain.ArticleView, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Create(ctx context.Context, in domain.ArticleInput) (domain.Article, error)
	Update(ctx context.Context, id int64, upd domain.ArticleUpdate) (domain.Article, error)
	Delete(ctx context.Context, id int64) error
	Analytics(ctx context.Context, since time.Time) (domain.Breakdown, error)
}

// Feeds is the feed lifecycle manager
type Feeds interface {
	List(ctx context.Context) ([]domain.Feed, error)
	Get(ctx context.Context, id int64) (domain.Feed, error)
	Create(ctx context.Context, in domain.FeedInput) (domain.Feed, error)
	Update(ctx context.Context, id int64, upd domain.FeedUpdate) (domain.Feed, error)
	Delete(ctx context.Context, id int64) error
	ResetErrors(ctx context.Context, id int64) (domain.Feed, error)
	FetchFeed(ctx context.Context, id int64) (domain.FetchResult, error)
	TestFeed(ctx context.Context, url string) (domain.FeedTestResult, error)
	ExportOPML(ctx context.Context) (string, error)
}

// Filters is the keyword filter catalog
type Filters interface {
	List(ctx context.Context) ([]domain.Filter, error)
	Get(ctx context.Context, id int64) (domain.Filter, error)
	Create(ctx context.Context, in domain.FilterInput) (domain.Filter, error)
	Update(ctx context.Context, id int64, upd domain.FilterUpdate) (domain.Filter, error)
	Delete(ctx context.Context, id int64) error
	Test(keyword, text string) domain.FilterTestResult
	Stats(ctx context.Context) (domain.FilterStats, error)
}

// Topics is the topic catalog
type Topics interface {
	List(ctx context.Context) ([]domain.Topic, error)
	Get(ctx context.Context, id int64) (domain.Topic, error)
	Create(ctx context.Context, in domain.TopicInput) (domain.Topic, error)
	Update(ctx context.Context, id int64, upd domain.TopicUpdate) (domain.Topic, error)
	Delete(ctx context.Context, id int64) error
	Popular(ctx context.Context, limit int) ([]domain.Topic, error)
	UpdateArticleCount(ctx context.Context, name string, delta int) (domain.Topic, error)
}

// Scheduler reports the state of periodic feed refresh
type Scheduler interface {
	Running() bool
	LastRound() *scheduler.RoundResult
}

// Services are the backends served by the api. Scheduler and Gatherer are optional.
type Services struct {
	Articles  Articles
	Feeds     Feeds
	Filters   Filters
	Topics    Topics
	Scheduler Scheduler
	Gatherer  prometheus.Gatherer
}

// Server represents HTTP server instance
type Server struct {
	cfg       config.ServerConfig
	svc       Services
	generator *feed.Generator
	version   string
	debug     bool
	now       func() time.Time

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance
func New(cfg config.ServerConfig, svc Services, version string, debug bool) *Server {
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		generator: feed.NewGenerator(cfg.BaseURL),
		version:   version,
		debug:     debug,
		now:       time.Now,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the http handler with all routes and middlewares
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.lock.Lock()
		defer s.lock.Unlock()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedflow", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)

		r.HandleFunc("GET /articles", s.listArticlesHandler)
		r.HandleFunc("POST /articles", s.createArticleHandler)
		r.HandleFunc("GET /articles/bookmarks", s.bookmarksHandler)
		r.HandleFunc("GET /articles/stats", s.articleStatsHandler)
		r.HandleFunc("GET /articles/analytics", s.analyticsHandler)
		r.HandleFunc("GET /articles/{id}", s.getArticleHandler)
		r.HandleFunc("PATCH /articles/{id}", s.updateArticleHandler)
		r.HandleFunc("DELETE /articles/{id}", s.deleteArticleHandler)
		r.HandleFunc("GET /articles/{id}/related", s.relatedHandler)
		r.HandleFunc("PUT /articles/{id}/bookmark", s.bookmarkHandler)
		r.HandleFunc("POST /articles/{id}/read", s.readHandler)

		r.HandleFunc("GET /feeds", s.listFeedsHandler)
		r.HandleFunc("POST /feeds", s.createFeedHandler)
		r.HandleFunc("GET /feeds/opml", s.opmlHandler)
		r.HandleFunc("POST /feeds/test", s.testFeedHandler)
		r.HandleFunc("GET /feeds/{id}", s.getFeedHandler)
		r.HandleFunc("PATCH /feeds/{id}", s.updateFeedHandler)
		r.HandleFunc("DELETE /feeds/{id}", s.deleteFeedHandler)
		r.HandleFunc("POST /feeds/{id}/fetch", s.fetchFeedHandler)
		r.HandleFunc("POST /feeds/{id}/reset", s.resetFeedHandler)

		r.HandleFunc("GET /filters", s.listFiltersHandler)
		r.HandleFunc("POST /filters", s.createFilterHandler)
		r.HandleFunc("GET /filters/stats", s.filterStatsHandler)
		r.HandleFunc("POST /filters/test", s.testFilterHandler)
		r.HandleFunc("GET /filters/{id}", s.getFilterHandler)
		r.HandleFunc("PATCH /filters/{id}", s.updateFilterHandler)
		r.HandleFunc("DELETE /filters/{id}", s.deleteFilterHandler)

		r.HandleFunc("GET /topics", s.listTopicsHandler)
		r.HandleFunc("POST /topics", s.createTopicHandler)
		r.HandleFunc("GET /topics/popular", s.popularTopicsHandler)
		r.HandleFunc("POST /topics/count", s.topicCountHandler)
		r.HandleFunc("GET /topics/{id}", s.getTopicHandler)
		r.HandleFunc("PATCH /topics/{id}", s.updateTopicHandler)
		r.HandleFunc("DELETE /topics/{id}", s.deleteTopicHandler)
	})

	s.router.HandleFunc("GET /rss", s.rssHandler)
	if s.svc.Gatherer != nil {
		s.router.Handle("GET /metrics", metrics.Handler(s.svc.Gatherer))
	}
}

// statusHandler returns server and scheduler status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    s.now().UTC(),
	}
	if s.svc.Scheduler != nil {
		status["scheduler"] = map[string]any{
			"running":   s.svc.Scheduler.Running(),
			"lastRound": s.svc.Scheduler.LastRound(),
		}
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}

// renderServiceError maps domain error kinds to http status codes
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		renderError(w, r, err, http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		renderError(w, r, err, http.StatusBadRequest)
	default:
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		renderError(w, r, err, http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into v, reporting a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} path value, reporting a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid id %q", r.PathValue("id")), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
