package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/umputun/feedflow/pkg/domain"
)

// rssHandler serves RSS 2.0 of the newest articles matching the same parameters as GET /api/v1/articles.
// Errors are rendered as JSON like the rest of the api.
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	c.SortBy = domain.SortByPublishDate
	c.Page = 1
	if s.cfg.RSSLimit > 0 && (c.Limit <= 0 || c.Limit > s.cfg.RSSLimit) {
		c.Limit = s.cfg.RSSLimit
	}

	articles, err := s.svc.Articles.Query(r.Context(), c)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	rss, err := s.generator.GenerateRSS(articles, c.Topics, r.URL.RawQuery)
	if err != nil {
		renderServiceError(w, r, fmt.Errorf("generate rss: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}
