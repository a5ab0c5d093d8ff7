package domain

import (
	"strings"
	"time"
)

// Article represents a stored news article
type Article struct {
	ID           int64      `json:"id"`
	FeedID       int64      `json:"feedId"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Summary      string     `json:"summary"`
	KeyPoints    []string   `json:"keyPoints,omitempty"`
	Source       string     `json:"source,omitempty"`
	PublishDate  time.Time  `json:"publishDate"`
	Topics       []string   `json:"topics"`
	IsSummarized bool       `json:"isSummarized"`
	ReadTime     int        `json:"readTime,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// HasTopic reports whether the article is tagged with any of the given topic names
func (a Article) HasTopic(names ...string) bool {
	for _, t := range a.Topics {
		for _, n := range names {
			if t == n {
				return true
			}
		}
	}
	return false
}

// ArticleView is an article decorated with the per-user bookmark and read state
type ArticleView struct {
	Article
	IsBookmarked bool `json:"isBookmarked"`
	IsRead       bool `json:"isRead"`
}

// ArticleInput is the data accepted when creating an article
type ArticleInput struct {
	FeedID       int64     `json:"feedId"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Summary      string    `json:"summary"`
	KeyPoints    []string  `json:"keyPoints"`
	Source       string    `json:"source"`
	PublishDate  time.Time `json:"publishDate"`
	Topics       []string  `json:"topics"`
	IsSummarized bool      `json:"isSummarized"`
	ReadTime     int       `json:"readTime"`
}

// ArticleUpdate is a partial article update, nil fields are left unchanged
type ArticleUpdate struct {
	Title        *string    `json:"title,omitempty"`
	URL          *string    `json:"url,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	KeyPoints    []string   `json:"keyPoints,omitempty"`
	PublishDate  *time.Time `json:"publishDate,omitempty"`
	Topics       []string   `json:"topics,omitempty"`
	IsSummarized *bool      `json:"isSummarized,omitempty"`
	ReadTime     *int       `json:"readTime,omitempty"`
}

// SortBy selects the ordering of query results
type SortBy string

// enum of supported sort keys
const (
	SortByPublishDate SortBy = "publishDate"
	SortByTitle       SortBy = "title"
	SortByPopularity  SortBy = "popularity"
)

// Criteria combines filter, sort and page parameters of an article query
type Criteria struct {
	Search       string
	Topics       []string
	IsSummarized *bool
	FeedID       int64
	Since        time.Time
	Until        time.Time
	SortBy       SortBy
	Page         int
	Limit        int
}

// Stats is an aggregate view of the article collection
type Stats struct {
	TotalArticles      int `json:"totalArticles"`
	TodayArticles      int `json:"todayArticles"`
	BookmarkedArticles int `json:"bookmarkedArticles"`
	ReadArticles       int `json:"readArticles"`
	SummarizedArticles int `json:"summarizedArticles"`
}

// TopicCount is the number of articles tagged with a topic
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Breakdown is an analytics view of articles published since a cutoff
type Breakdown struct {
	Since          time.Time     `json:"since"`
	RecentArticles int           `json:"recentArticles"`
	ByFeed         map[int64]int `json:"byFeed"`
	TopTopics      []TopicCount  `json:"topTopics"`
}

// wordsPerMinute is the reading speed used to estimate read time
const wordsPerMinute = 200

// EstimateReadTime returns the reading time of text in whole minutes, never less than one
func EstimateReadTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
