// Package filter manages keyword filters used to block articles at ingestion time
package filter

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/store"
)

// testTextLimit is the number of runes of sample text echoed back by Test
const testTextLimit = 100

// Service is the keyword filter catalog
type Service struct {
	filters *store.Collection[domain.Filter]
	mu      sync.Mutex
	now     func() time.Time
}

// New makes a filter catalog on top of the store, now defaults to time.Now
func New(s *store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{filters: store.NewCollection[domain.Filter](s, store.KeyFilters), now: now}
}

// List returns all filters in stored order
func (s *Service) List(ctx context.Context) ([]domain.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns a filter by id
func (s *Service) Get(ctx context.Context, id int64) (domain.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return domain.Filter{}, err
	}
	idx := indexOf(filters, id)
	if idx < 0 {
		return domain.Filter{}, fmt.Errorf("filter %d: %w", id, domain.ErrNotFound)
	}
	return filters[idx], nil
}

// Create adds a new filter in front of the list. The keyword is trimmed and must be unique ignoring case.
func (s *Service) Create(ctx context.Context, in domain.FilterInput) (domain.Filter, error) {
	keyword := strings.TrimSpace(in.Keyword)
	if keyword == "" {
		return domain.Filter{}, fmt.Errorf("filter keyword: %w", domain.ErrEmptyField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return domain.Filter{}, err
	}
	if duplicate(filters, keyword, 0) {
		return domain.Filter{}, fmt.Errorf("%w: %q", domain.ErrDuplicateKeyword, keyword)
	}

	now := s.now()
	f := domain.Filter{
		ID:        nextID(filters),
		Keyword:   keyword,
		IsActive:  in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, append([]domain.Filter{f}, filters...)); err != nil {
		return domain.Filter{}, err
	}
	log.Printf("[INFO] created filter %d %q, active: %v", f.ID, f.Keyword, f.IsActive)
	return f, nil
}

// Update merges non-nil fields into the filter, a changed keyword is validated as on create
func (s *Service) Update(ctx context.Context, id int64, upd domain.FilterUpdate) (domain.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return domain.Filter{}, err
	}
	idx := indexOf(filters, id)
	if idx < 0 {
		return domain.Filter{}, fmt.Errorf("filter %d: %w", id, domain.ErrNotFound)
	}

	f := filters[idx]
	if upd.Keyword != nil {
		keyword := strings.TrimSpace(*upd.Keyword)
		if keyword == "" {
			return domain.Filter{}, fmt.Errorf("filter keyword: %w", domain.ErrEmptyField)
		}
		if duplicate(filters, keyword, id) {
			return domain.Filter{}, fmt.Errorf("%w: %q", domain.ErrDuplicateKeyword, keyword)
		}
		f.Keyword = keyword
	}
	if upd.IsActive != nil {
		f.IsActive = *upd.IsActive
	}
	if upd.BlockedCount != nil {
		f.BlockedCount = max(0, *upd.BlockedCount)
	}
	f.UpdatedAt = s.now()
	filters[idx] = f

	if err := s.save(ctx, filters); err != nil {
		return domain.Filter{}, err
	}
	return f, nil
}

// Delete removes a filter
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(filters, id)
	if idx < 0 {
		return fmt.Errorf("filter %d: %w", id, domain.ErrNotFound)
	}
	return s.save(ctx, slices.Delete(filters, idx, idx+1))
}

// Test checks keyword against text without touching stored filters.
// The echoed text is cut to the first 100 runes and always ends with an ellipsis.
func (s *Service) Test(keyword, text string) domain.FilterTestResult {
	probe := domain.Filter{Keyword: keyword}
	sample := []rune(text)
	if len(sample) > testTextLimit {
		sample = sample[:testTextLimit]
	}
	return domain.FilterTestResult{
		Matches:  probe.Matches(text),
		Keyword:  keyword,
		TestText: string(sample) + "...",
	}
}

// Stats aggregates filter counters, averageBlocked is rounded half away from zero
func (s *Service) Stats(ctx context.Context) (domain.FilterStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return domain.FilterStats{}, err
	}

	res := domain.FilterStats{TotalFilters: len(filters)}
	for _, f := range filters {
		res.TotalBlocked += f.BlockedCount
		if f.IsActive {
			res.ActiveFilters++
		}
	}
	res.AverageBlocked = int(math.Round(float64(res.TotalBlocked) / float64(max(1, len(filters)))))
	return res, nil
}

// Match returns the first active filter whose keyword occurs in any of the texts, nil if none
func (s *Service) Match(ctx context.Context, texts ...string) (*domain.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		if !f.IsActive {
			continue
		}
		for _, text := range texts {
			if f.Matches(text) {
				return &f, nil
			}
		}
	}
	return nil, nil
}

// RecordBlocked increments the blocked counter of a filter
func (s *Service) RecordBlocked(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filters, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(filters, id)
	if idx < 0 {
		return fmt.Errorf("filter %d: %w", id, domain.ErrNotFound)
	}
	filters[idx].BlockedCount++
	return s.save(ctx, filters)
}

func (s *Service) load(ctx context.Context) ([]domain.Filter, error) {
	filters, err := s.filters.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load filters: %w", err)
	}
	return filters, nil
}

func (s *Service) save(ctx context.Context, filters []domain.Filter) error {
	if err := s.filters.Save(ctx, filters); err != nil {
		return fmt.Errorf("save filters: %w", err)
	}
	return nil
}

// duplicate checks for another filter with the same keyword, ignoring case and the filter with id skip
func duplicate(filters []domain.Filter, keyword string, skip int64) bool {
	for _, f := range filters {
		if f.ID != skip && strings.EqualFold(f.Keyword, keyword) {
			return true
		}
	}
	return false
}

func indexOf(filters []domain.Filter, id int64) int {
	return slices.IndexFunc(filters, func(f domain.Filter) bool { return f.ID == id })
}

func nextID(filters []domain.Filter) int64 {
	var maxID int64
	for _, f := range filters {
		maxID = max(maxID, f.ID)
	}
	return maxID + 1
}
