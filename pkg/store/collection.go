package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Collection is a typed handle on one persisted collection
type Collection[T any] struct {
	store *Store
	key   string
}

// NewCollection makes a collection handle for key
func NewCollection[T any](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Key returns the storage key of the collection
func (c *Collection[T]) Key() string {
	return c.key
}

// Load reads the collection. Absent or unparsable values fall back to seed data,
// a parse failure is logged and healed on the next save, never returned.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	data, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}

	if found {
		var records []T
		err = json.Unmarshal(data, &records)
		if err == nil {
			if records == nil {
				records = []T{}
			}
			return records, nil
		}
		log.Printf("[WARN] collection %s is corrupt, falling back to seed data: %v", c.key, err)
	}

	return c.seed(), nil
}

// Save serializes the whole collection and replaces the stored value
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, data); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

func (c *Collection[T]) seed() []T {
	data, ok := c.store.seed.Seed(c.key)
	if !ok {
		return []T{}
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[WARN] seed data for %s is invalid: %v", c.key, err)
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}
