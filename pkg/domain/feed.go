package domain

import (
	"regexp"
	"time"
)

var feedURLRe = regexp.MustCompile(`^https?://.+`)

// FeedStatus is the health classification of a feed
type FeedStatus string

// enum of feed statuses, ordered by precedence
const (
	FeedDisabled FeedStatus = "Disabled"
	FeedFailed   FeedStatus = "Failed"
	FeedWarning  FeedStatus = "Warning"
	FeedActive   FeedStatus = "Active"
)

// failedErrorCount is the error count above which a feed is considered failed
const failedErrorCount = 5

// Feed represents a news feed source
type Feed struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	IsActive     bool       `json:"isActive"`
	LastFetched  *time.Time `json:"lastFetched"`
	ErrorCount   int        `json:"errorCount"`
	LastError    string     `json:"lastError,omitempty"`
	ArticleCount int        `json:"articleCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Status classifies feed health: Disabled > Failed > Warning > Active
func (f Feed) Status() FeedStatus {
	switch {
	case !f.IsActive:
		return FeedDisabled
	case f.ErrorCount > failedErrorCount:
		return FeedFailed
	case f.ErrorCount > 0:
		return FeedWarning
	default:
		return FeedActive
	}
}

// FeedInput is the data accepted when creating a feed
type FeedInput struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	IsActive bool   `json:"isActive"`
}

// FeedUpdate is a partial feed update, nil fields are left unchanged
type FeedUpdate struct {
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// ValidFeedURL reports whether the url looks like an http(s) feed location
func ValidFeedURL(u string) bool {
	return feedURLRe.MatchString(u)
}

// FetchResult is the outcome of a single feed refresh
type FetchResult struct {
	Success       bool `json:"success"`
	NewArticles   int  `json:"newArticles"`
	TotalArticles int  `json:"totalArticles"`
}

// FeedTestResult describes a probed feed url
type FeedTestResult struct {
	Valid        bool      `json:"valid"`
	Title        string    `json:"title"`
	ArticleCount int       `json:"articleCount"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Error        string    `json:"error,omitempty"`
}

// ParsedFeed is a feed as returned by the parser
type ParsedFeed struct {
	Title       string
	Description string
	Link        string
	Updated     time.Time
	Items       []ParsedItem
}

// ParsedItem is a single entry of a parsed feed
type ParsedItem struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Categories  []string
	Published   time.Time
}
