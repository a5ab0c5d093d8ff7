package server

import (
	"log"
	"net/http"

	"github.com/umputun/feedflow/pkg/domain"
)

// feedResponse is a feed with its computed health status
type feedResponse struct {
	domain.Feed
	Status domain.FeedStatus `json:"status"`
}

func toFeedResponse(f domain.Feed) feedResponse {
	return feedResponse{Feed: f, Status: f.Status()}
}

func (s *Server) listFeedsHandler(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.svc.Feeds.List(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	res := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		res = append(res, toFeedResponse(f))
	}
	renderJSON(w, r, http.StatusOK, res)
}

func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.svc.Feeds.Get(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, toFeedResponse(f))
}

func (s *Server) createFeedHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.FeedInput
	if !decodeJSON(w, r, &in) {
		return
	}
	f, err := s.svc.Feeds.Create(r.Context(), in)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusCreated, toFeedResponse(f))
}

func (s *Server) updateFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd domain.FeedUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	f, err := s.svc.Feeds.Update(r.Context(), id, upd)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, toFeedResponse(f))
}

func (s *Server) deleteFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Feeds.Delete(r.Context(), id); err != nil {
		renderServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchFeedHandler refreshes the feed now. A failed fetch is a 502 carrying the updated counters.
func (s *Server) fetchFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Feeds.FetchFeed(r.Context(), id)
	if err != nil {
		if _, getErr := s.svc.Feeds.Get(r.Context(), id); getErr != nil {
			renderServiceError(w, r, err)
			return
		}
		log.Printf("[WARN] manual fetch of feed %d failed: %v", id, err)
		renderJSON(w, r, http.StatusBadGateway, map[string]any{"error": err.Error(), "result": res})
		return
	}
	renderJSON(w, r, http.StatusOK, res)
}

func (s *Server) resetFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := s.svc.Feeds.ResetErrors(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, toFeedResponse(f))
}

// testFeedHandler probes the url from {"url": "..."} without storing anything
func (s *Server) testFeedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Feeds.TestFeed(r.Context(), req.URL)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	renderJSON(w, r, http.StatusOK, res)
}

func (s *Server) opmlHandler(w http.ResponseWriter, r *http.Request) {
	opml, err := s.svc.Feeds.ExportOPML(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="feedflow.opml"`)
	if _, err := w.Write([]byte(opml)); err != nil {
		log.Printf("[ERROR] failed to write OPML response: %v", err)
	}
}
