package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/feedflow/pkg/domain"
)

// Generator renders curated articles as RSS and feed subscriptions as OPML
type Generator struct {
	baseURL string
	now     func() time.Time
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// GenerateRSS creates an RSS 2.0 feed from articles, selfQuery is appended to the self link as is
func (g *Generator) GenerateRSS(articles []domain.ArticleView, topics []string, selfQuery string) (string, error) {
	title := "FeedFlow - All Topics"
	if len(topics) > 0 {
		title = "FeedFlow - " + strings.Join(topics, ", ")
	}

	selfLink := g.baseURL + "/rss"
	if selfQuery != "" {
		selfLink += "?" + selfQuery
	}

	rssItems := make([]*RSSItem, 0, len(articles))
	for _, a := range articles {
		rssItems = append(rssItems, g.convertToRSSItem(a))
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &RSSChannel{
			Title:         title,
			Link:          g.baseURL + "/",
			Description:   "Curated news articles",
			AtomLink:      &AtomLink{Href: selfLink, Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: g.now().Format(time.RFC1123Z),
			Items:         rssItems,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

func (g *Generator) convertToRSSItem(a domain.ArticleView) *RSSItem {
	desc := a.Summary
	if len(a.KeyPoints) > 0 {
		desc += "\n\n- " + strings.Join(a.KeyPoints, "\n- ")
	}

	guid := RSSGUID{Value: a.URL, PermaLink: true}
	if a.URL == "" {
		guid = RSSGUID{Value: fmt.Sprintf("%s/api/v1/articles/%d", g.baseURL, a.ID)}
	}

	return &RSSItem{
		Title:       a.Title,
		Link:        a.URL,
		GUID:        guid,
		Description: desc,
		Source:      a.Source,
		PubDate:     a.PublishDate.Format(time.RFC1123Z),
		Categories:  a.Topics,
	}
}

// GenerateOPML creates an OPML 2.0 document listing active feeds
func (g *Generator) GenerateOPML(feeds []domain.Feed) (string, error) {
	outlines := make([]OPMLOutline, 0, len(feeds))
	for _, f := range feeds {
		if !f.IsActive {
			continue
		}
		outlines = append(outlines, OPMLOutline{Text: f.Name, Title: f.Name, Type: "rss", XMLURL: f.URL})
	}

	doc := OPML{
		Version: "2.0",
		Head:    OPMLHead{Title: "FeedFlow Feed Subscriptions", DateCreated: g.now().Format(time.RFC1123Z)},
		Body:    OPMLBody{Outlines: outlines},
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal OPML: %w", err)
	}
	return xml.Header + string(output), nil
}
