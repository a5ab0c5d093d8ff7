package feed

import (
	"context"
	"html"
	"log"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/llm"
)

var (
	stripPolicy  = bluemonday.StrictPolicy()
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ingest turns new entries of a parsed feed into articles and returns how many were created.
// Entries are processed oldest first so the newest ends up in front of the article list.
func (m *Manager) ingest(ctx context.Context, f domain.Feed, parsed *domain.ParsedFeed) int {
	items := parsed.Items
	if len(items) > m.maxItems {
		items = items[:m.maxItems]
	}

	known, err := m.deps.Topics.Names(ctx)
	if err != nil {
		log.Printf("[WARN] can't load topics for feed %d, entries will be untagged: %v", f.ID, err)
	}

	created := 0
	for i := len(items) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		ok, err := m.ingestItem(ctx, f, items[i], known)
		if err != nil {
			log.Printf("[WARN] feed %d, entry %q skipped: %v", f.ID, items[i].Link, err)
			continue
		}
		if ok {
			created++
		}
	}
	m.deps.Metrics.RecordIngested(created)
	return created
}

// ingestItem processes a single entry, false means it was skipped as empty, duplicate or blocked
func (m *Manager) ingestItem(ctx context.Context, f domain.Feed, item domain.ParsedItem, known []string) (bool, error) {
	title := plainText(item.Title)
	if title == "" && item.Link == "" {
		return false, nil
	}
	if title == "" {
		title = item.Link
	}

	exists, err := m.deps.Articles.Exists(ctx, item.Link, title)
	if err != nil {
		return false, err
	}
	if exists {
		m.deps.Metrics.RecordDuplicate()
		return false, nil
	}

	description := plainText(item.Description)
	if description == "" {
		description = plainText(item.Content)
	}

	blocked, err := m.deps.Filters.Match(ctx, title, description)
	if err != nil {
		return false, err
	}
	if blocked != nil {
		log.Printf("[DEBUG] %q blocked by filter %q", title, blocked.Keyword)
		m.deps.Metrics.RecordBlocked()
		if err := m.deps.Filters.RecordBlocked(ctx, blocked.ID); err != nil {
			log.Printf("[WARN] can't count block of filter %d: %v", blocked.ID, err)
		}
		return false, nil
	}

	text := plainText(item.Content)
	if m.deps.Extractor != nil && item.Link != "" {
		ext, err := m.deps.Extractor.Extract(ctx, item.Link)
		if err != nil {
			log.Printf("[WARN] extraction of %s failed, using feed text: %v", item.Link, err)
		} else {
			text = ext.Text
		}
	}
	if text == "" {
		text = description
	}

	in := domain.ArticleInput{
		FeedID:      f.ID,
		Title:       title,
		URL:         item.Link,
		Summary:     description,
		Source:      f.Name,
		PublishDate: item.Published,
		ReadTime:    domain.EstimateReadTime(text),
	}

	var llmTopics []string
	if m.deps.Summarizer != nil {
		sum, err := m.deps.Summarizer.Summarize(ctx, llm.Request{Title: title, Description: description, Content: text, Topics: known})
		if err != nil {
			log.Printf("[WARN] summary of %q failed, using description: %v", title, err)
		} else {
			in.Summary = sum.Summary
			in.KeyPoints = sum.KeyPoints
			in.IsSummarized = true
			llmTopics = sum.Topics
		}
	}
	in.Topics = tagTopics(known, item.Categories, llmTopics, title+" "+in.Summary)

	// another fetch may have stored the same entry while this one was extracted or summarized
	_, created, err := m.deps.Articles.CreateIfAbsent(ctx, in)
	if err != nil {
		return false, err
	}
	if !created {
		m.deps.Metrics.RecordDuplicate()
		return false, nil
	}
	for _, t := range in.Topics {
		if _, err := m.deps.Topics.UpdateArticleCount(ctx, t, 1); err != nil {
			log.Printf("[WARN] can't bump count of topic %q: %v", t, err)
		}
	}
	return true, nil
}

// plainText strips markup, unescapes entities and collapses whitespace
func plainText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// tagTopics picks known topics matching entry categories, suggested topics or whole words of text.
// The result follows the order of known topics.
func tagTopics(known, categories, suggested []string, text string) []string {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	res := []string{}
	for _, name := range known {
		match := slices.ContainsFunc(categories, func(c string) bool { return strings.EqualFold(strings.TrimSpace(c), name) }) ||
			slices.ContainsFunc(suggested, func(s string) bool { return strings.EqualFold(strings.TrimSpace(s), name) }) ||
			containsPhrase(words, text, name)
		if match {
			res = append(res, name)
		}
	}
	return res
}

// containsPhrase reports whether name appears in text as whole words
func containsPhrase(words map[string]bool, text, name string) bool {
	parts := strings.Fields(strings.ToLower(name))
	switch len(parts) {
	case 0:
		return false
	case 1:
		return words[parts[0]]
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.Join(parts, " ")) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(whitespaceRe.ReplaceAllString(text, " "))
}
