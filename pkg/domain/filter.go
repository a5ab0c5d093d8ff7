package domain

import (
	"strings"
	"time"
)

// Filter is a keyword rule blocking matching articles at ingestion
type Filter struct {
	ID           int64     `json:"id"`
	Keyword      string    `json:"keyword"`
	IsActive     bool      `json:"isActive"`
	BlockedCount int       `json:"blockedCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Matches reports whether the keyword is a case-insensitive substring of text
func (f Filter) Matches(text string) bool {
	if f.Keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(f.Keyword))
}

// FilterInput is the data accepted when creating a filter
type FilterInput struct {
	Keyword  string `json:"keyword"`
	IsActive bool   `json:"isActive"`
}

// FilterUpdate is a partial filter update, nil fields are left unchanged
type FilterUpdate struct {
	Keyword      *string `json:"keyword,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
	BlockedCount *int    `json:"blockedCount,omitempty"`
}

// FilterTestResult is the result of checking a keyword against sample text
type FilterTestResult struct {
	Matches  bool   `json:"matches"`
	Keyword  string `json:"keyword"`
	TestText string `json:"testText"`
}

// FilterStats aggregates filter counters
type FilterStats struct {
	TotalFilters   int `json:"totalFilters"`
	ActiveFilters  int `json:"activeFilters"`
	TotalBlocked   int `json:"totalBlocked"`
	AverageBlocked int `json:"averageBlocked"`
}
