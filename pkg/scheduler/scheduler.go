// Package scheduler refreshes active feeds periodically with a bounded worker pool
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedflow/pkg/domain"
)

//go:generate moq -out mocks/feed_fetcher.go -pkg mocks -skip-ensure -fmt goimports . FeedFetcher

// FeedFetcher lists feeds and refreshes one of them
type FeedFetcher interface {
	List(ctx context.Context) ([]domain.Feed, error)
	FetchFeed(ctx context.Context, id int64) (domain.FetchResult, error)
}

// Params holds scheduler dependencies and configuration
type Params struct {
	Feeds          FeedFetcher
	UpdateInterval time.Duration
	MaxWorkers     int
}

// RoundResult is the outcome of one refresh of all active feeds
type RoundResult struct {
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Feeds       int           `json:"feeds"`
	Failed      int           `json:"failed"`
	NewArticles int           `json:"newArticles"`
}

// Scheduler manages periodic feed updates
type Scheduler struct {
	feeds          FeedFetcher
	updateInterval time.Duration
	maxWorkers     int

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu        sync.Mutex // guards lastRound
	lastRound *RoundResult
	running   atomic.Bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(p Params) *Scheduler {
	if p.UpdateInterval <= 0 {
		p.UpdateInterval = 30 * time.Minute
	}
	if p.MaxWorkers <= 0 {
		p.MaxWorkers = 5
	}
	return &Scheduler{feeds: p.Feeds, updateInterval: p.UpdateInterval, maxWorkers: p.MaxWorkers}
}

// Start runs the first refresh immediately and then every update interval until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.feedUpdateWorker(ctx)

	lgr.Printf("[INFO] scheduler started with update interval %v, max workers %d", s.updateInterval, s.maxWorkers)
}

// Stop gracefully stops the scheduler, waiting for the current round to finish
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.running.Store(false)
	lgr.Printf("[INFO] scheduler stopped")
}

// Running reports whether the scheduler was started and not stopped
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastRound returns the result of the latest completed round, nil before the first one
func (s *Scheduler) LastRound() *RoundResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRound == nil {
		return nil
	}
	res := *s.lastRound
	return &res
}

// UpdateNow refreshes all active feeds and waits for completion
func (s *Scheduler) UpdateNow(ctx context.Context) RoundResult {
	return s.updateAllFeeds(ctx)
}

func (s *Scheduler) feedUpdateWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	// run immediately on start
	s.updateAllFeeds(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateAllFeeds(ctx)
		}
	}
}

// updateAllFeeds fetches all active feeds, at most maxWorkers at once. Failures are counted, never abort the round.
func (s *Scheduler) updateAllFeeds(ctx context.Context) RoundResult {
	res := RoundResult{StartedAt: time.Now()}
	feeds, err := s.feeds.List(ctx)
	if err != nil {
		lgr.Printf("[ERROR] failed to list feeds: %v", err)
		return res
	}

	var failed, created atomic.Int64
	g := errgroup.Group{}
	g.SetLimit(s.maxWorkers)
	for _, f := range feeds {
		if !f.IsActive {
			continue
		}
		res.Feeds++
		g.Go(func() error {
			if ctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			r, err := s.feeds.FetchFeed(ctx, f.ID)
			if err != nil {
				lgr.Printf("[WARN] failed to update feed %d %s: %v", f.ID, f.URL, err)
				failed.Add(1)
				return nil
			}
			created.Add(int64(r.NewArticles))
			return nil
		})
	}
	_ = g.Wait()

	res.Failed = int(failed.Load())
	res.NewArticles = int(created.Load())
	res.Duration = time.Since(res.StartedAt)

	s.mu.Lock()
	s.lastRound = &res
	s.mu.Unlock()

	lgr.Printf("[INFO] feed update completed, %d feeds, %d failed, %d new articles in %v",
		res.Feeds, res.Failed, res.NewArticles, res.Duration)
	return res
}
