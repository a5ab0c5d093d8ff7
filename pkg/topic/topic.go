// Package topic manages the topic catalog and its article counters
package topic

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/store"
)

// DefaultPopularLimit is the number of topics returned by Popular when no limit is given
const DefaultPopularLimit = 10

// Service is the topic catalog
type Service struct {
	topics *store.Collection[domain.Topic]
	mu     sync.Mutex
	now    func() time.Time
}

// New makes a topic catalog on top of the store, now defaults to time.Now
func New(s *store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{topics: store.NewCollection[domain.Topic](s, store.KeyTopics), now: now}
}

// List returns all topics in stored order
func (s *Service) List(ctx context.Context) ([]domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Names returns the names of all topics
func (s *Service) Names(ctx context.Context) ([]string, error) {
	topics, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(topics))
	for _, t := range topics {
		res = append(res, t.Name)
	}
	return res, nil
}

// Get returns a topic by id
func (s *Service) Get(ctx context.Context, id int64) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	idx := indexOf(topics, id)
	if idx < 0 {
		return domain.Topic{}, fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	return topics[idx], nil
}

// Create appends a topic, the slug is derived from the name when not given
func (s *Service) Create(ctx context.Context, in domain.TopicInput) (domain.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Topic{}, fmt.Errorf("topic name: %w", domain.ErrEmptyField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return domain.Topic{}, err
	}

	now := s.now()
	t := domain.Topic{
		ID:        nextID(topics),
		Name:      name,
		Slug:      in.Slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Slug == "" {
		t.Slug = domain.Slugify(name)
	}

	if err := s.save(ctx, append(topics, t)); err != nil {
		return domain.Topic{}, err
	}
	return t, nil
}

// Update merges non-nil fields into the topic
func (s *Service) Update(ctx context.Context, id int64, upd domain.TopicUpdate) (domain.Topic, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return domain.Topic{}, fmt.Errorf("topic name: %w", domain.ErrEmptyField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	idx := indexOf(topics, id)
	if idx < 0 {
		return domain.Topic{}, fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}

	t := topics[idx]
	if upd.Name != nil {
		t.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Slug != nil {
		t.Slug = *upd.Slug
	}
	if upd.ArticleCount != nil {
		t.ArticleCount = max(0, *upd.ArticleCount)
	}
	t.UpdatedAt = s.now()
	topics[idx] = t

	if err := s.save(ctx, topics); err != nil {
		return domain.Topic{}, err
	}
	return t, nil
}

// Delete removes a topic. Articles keep the topic name in their tags.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(topics, id)
	if idx < 0 {
		return fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	return s.save(ctx, slices.Delete(topics, idx, idx+1))
}

// Popular returns up to limit topics with the highest article counts, ties keep stored order.
// The stored order itself is not changed.
func (s *Service) Popular(ctx context.Context, limit int) ([]domain.Topic, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(topics)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ArticleCount > sorted[j].ArticleCount })
	return sorted[:min(limit, len(sorted))], nil
}

// UpdateArticleCount adds delta to the counter of the topic with the given name, never going below zero
func (s *Service) UpdateArticleCount(ctx context.Context, name string, delta int) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics, err := s.load(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	idx := slices.IndexFunc(topics, func(t domain.Topic) bool { return t.Name == name })
	if idx < 0 {
		return domain.Topic{}, fmt.Errorf("topic %q: %w", name, domain.ErrNotFound)
	}
	topics[idx].ArticleCount = max(0, topics[idx].ArticleCount+delta)
	if err := s.save(ctx, topics); err != nil {
		return domain.Topic{}, err
	}
	return topics[idx], nil
}

func (s *Service) load(ctx context.Context) ([]domain.Topic, error) {
	topics, err := s.topics.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	return topics, nil
}

func (s *Service) save(ctx context.Context, topics []domain.Topic) error {
	if err := s.topics.Save(ctx, topics); err != nil {
		return fmt.Errorf("save topics: %w", err)
	}
	return nil
}

func indexOf(topics []domain.Topic, id int64) int {
	return slices.IndexFunc(topics, func(t domain.Topic) bool { return t.ID == id })
}

func nextID(topics []domain.Topic) int64 {
	var maxID int64
	for _, t := range topics {
		maxID = max(maxID, t.ID)
	}
	return maxID + 1
}
