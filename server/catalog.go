package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/umputun/feedflow/pkg/domain"
)

func (s *Server) listFiltersHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := s.svc.Filters.List(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, filters)
}

func (s *Server) getFilterHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.svc.Filters.Get(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, f)
}

func (s *Server) createFilterHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.FilterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	f, err := s.svc.Filters.Create(r.Context(), in)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusCreated, f)
}

func (s *Server) updateFilterHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd domain.FilterUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	f, err := s.svc.Filters.Update(r.Context(), id, upd)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, f)
}

func (s *Server) deleteFilterHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Filters.Delete(r.Context(), id); err != nil {
		renderServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// testFilterHandler checks {"keyword", "text"} without touching stored filters
func (s *Server) testFilterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
		Text    string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	renderJSON(w, r, http.StatusOK, s.svc.Filters.Test(req.Keyword, req.Text))
}

func (s *Server) filterStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Filters.Stats(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, stats)
}

func (s *Server) listTopicsHandler(w http.ResponseWriter, r *http.Request) {
	topics, err := s.svc.Topics.List(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, topics)
}

func (s *Server) getTopicHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Topics.Get(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, t)
}

func (s *Server) createTopicHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.TopicInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := s.svc.Topics.Create(r.Context(), in)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusCreated, t)
}

func (s *Server) updateTopicHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd domain.TopicUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	t, err := s.svc.Topics.Update(r.Context(), id, upd)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, t)
}

func (s *Server) deleteTopicHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Topics.Delete(r.Context(), id); err != nil {
		renderServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// popularTopicsHandler returns topics by article count, "limit" defaults to 10
func (s *Server) popularTopicsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			renderServiceError(w, r, fmt.Errorf("%w: limit %q", domain.ErrInvalidInput, v))
			return
		}
		limit = n
	}
	topics, err := s.svc.Topics.Popular(r.Context(), limit)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, topics)
}

// topicCountHandler adjusts the article counter of a topic, body is {"name": "...", "delta": n}
func (s *Server) topicCountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Delta int    `json:"delta"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.svc.Topics.UpdateArticleCount(r.Context(), req.Name, req.Delta)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, t)
}
