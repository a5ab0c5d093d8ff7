package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/umputun/feedflow/pkg/domain"
)

// listArticlesHandler returns a page of articles matching query parameters
func (s *Server) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	articles, err := s.svc.Articles.Query(r.Context(), c)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, articles)
}

func (s *Server) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	article, err := s.svc.Articles.Get(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, article)
}

func (s *Server) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.ArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	article, err := s.svc.Articles.Create(r.Context(), in)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusCreated, article)
}

func (s *Server) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd domain.ArticleUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	article, err := s.svc.Articles.Update(r.Context(), id, upd)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, article)
}

// deleteArticleHandler removes an article together with its bookmark and read marks
func (s *Server) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Articles.Delete(r.Context(), id); err != nil {
		renderServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) relatedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	related, err := s.svc.Articles.Related(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, related)
}

func (s *Server) bookmarksHandler(w http.ResponseWriter, r *http.Request) {
	articles, err := s.svc.Articles.Bookmarks(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, articles)
}

// bookmarkHandler sets or clears the bookmark, body is {"bookmarked": bool}
func (s *Server) bookmarkHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Bookmarked bool `json:"bookmarked"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.Articles.ToggleBookmark(r.Context(), id, req.Bookmarked); err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"id": id, "bookmarked": req.Bookmarked})
}

func (s *Server) readHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Articles.MarkAsRead(r.Context(), id); err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"id": id, "read": true})
}

func (s *Server) articleStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Articles.Stats(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, stats)
}

// analyticsHandler returns the breakdown since the "since" time or the last "days" days, a week by default
func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since := s.now().AddDate(0, 0, -defaultAnalyticsDays)
	switch {
	case q.Get("since") != "":
		t, err := parseTime(q.Get("since"))
		if err != nil {
			renderServiceError(w, r, fmt.Errorf("%w: since: %v", domain.ErrInvalidInput, err))
			return
		}
		since = t
	case q.Get("days") != "":
		days, err := strconv.Atoi(q.Get("days"))
		if err != nil || days < 0 {
			renderServiceError(w, r, fmt.Errorf("%w: days must be a non-negative number", domain.ErrInvalidInput))
			return
		}
		since = s.now().AddDate(0, 0, -days)
	}

	breakdown, err := s.svc.Articles.Analytics(r.Context(), since)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, breakdown)
}

// parseCriteria builds query criteria from url parameters. Topics may be repeated or comma separated.
func parseCriteria(q url.Values) (domain.Criteria, error) {
	c := domain.Criteria{
		Search: strings.TrimSpace(q.Get("search")),
		SortBy: domain.SortBy(q.Get("sortBy")),
	}

	for _, v := range q["topics"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.Topics = append(c.Topics, t)
			}
		}
	}

	if v := q.Get("isSummarized"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: isSummarized %q", domain.ErrInvalidInput, v)
		}
		c.IsSummarized = &b
	}

	ints := []struct {
		name string
		dst  *int
	}{{"page", &c.Page}, {"limit", &c.Limit}}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return c, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, p.name, v)
			}
			*p.dst = n
		}
	}

	if v := q.Get("feedId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("%w: feedId %q", domain.ErrInvalidInput, v)
		}
		c.FeedID = id
	}

	var err error
	if v := q.Get("since"); v != "" {
		if c.Since, err = parseTime(v); err != nil {
			return c, fmt.Errorf("%w: since: %v", domain.ErrInvalidInput, err)
		}
	}
	if v := q.Get("until"); v != "" {
		if c.Until, err = parseTime(v); err != nil {
			return c, fmt.Errorf("%w: until: %v", domain.ErrInvalidInput, err)
		}
	}
	return c, nil
}

// parseTime accepts RFC3339 timestamps and plain dates
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", v)
	}
	return t, nil
}
