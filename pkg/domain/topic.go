package domain

import (
	"strings"
	"time"
)

// Topic is a named article category
type Topic struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ArticleCount int       `json:"articleCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TopicInput is the data accepted when creating a topic
type TopicInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TopicUpdate is a partial topic update, nil fields are left unchanged
type TopicUpdate struct {
	Name         *string `json:"name,omitempty"`
	Slug         *string `json:"slug,omitempty"`
	ArticleCount *int    `json:"articleCount,omitempty"`
}

// Slugify lowercases the name and replaces whitespace runs with hyphens
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
