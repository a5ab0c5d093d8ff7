// Package store keeps feedflow collections as JSON blobs in a SQLite key-value table.
// Every collection is loaded and saved whole, there are no cross-collection transactions.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed schema.sql
var schema string

// collection keys
const (
	KeyArticles     = "feedflow_articles"
	KeyBookmarks    = "feedflow_bookmarks"
	KeyReadArticles = "feedflow_read_articles"
	KeyFeeds        = "feedflow_feeds"
	KeyFilters      = "feedflow_filters"
	KeyTopics       = "feedflow_topics"
)

// Config represents database configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a durable key-value store holding one JSON document per collection
type Store struct {
	db   *sqlx.DB
	seed SeedProvider
}

// SeedProvider supplies initial collection data when durable storage has none
type SeedProvider interface {
	Seed(key string) ([]byte, bool)
}

// New opens the database, applies pragmas and schema
func New(ctx context.Context, cfg Config, seed SeedProvider) (*Store, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:feedflow.db?cache=shared&mode=rwc&_txlock=immediate"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000", // 5 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if seed == nil {
		seed = NoSeed{}
	}
	return &Store{db: db, seed: seed}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the raw value stored under key, found is false if there is no value
func (s *Store) Get(ctx context.Context, key string) (data []byte, found bool, err error) {
	var value string
	err = s.db.GetContext(ctx, &value, "SELECT value FROM collections WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Put replaces the value stored under key, retrying on sqlite lock errors
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO collections (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`
		if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("put %s: %w", key, err)}
		}
		return nil
	})
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

func (e *criticalError) Unwrap() error {
	return e.err
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
