package feed

import (
	"encoding/xml"
)

// RSS represents the root RSS 2.0 element
type RSS struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *RSSChannel `xml:"channel"`
}

// RSSChannel represents an RSS channel
type RSSChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *AtomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*RSSItem `xml:"item"`
}

// AtomLink represents an Atom self link within RSS
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// RSSItem is a single article in the generated feed
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        RSSGUID  `xml:"guid"`
	Description string   `xml:"description"`
	Source      string   `xml:"source,omitempty"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

// RSSGUID is an item guid, permalink marks guids which are article urls
type RSSGUID struct {
	Value     string `xml:",chardata"`
	PermaLink bool   `xml:"isPermaLink,attr"`
}

// OPML is the root of an OPML 2.0 subscription list
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    OPMLHead `xml:"head"`
	Body    OPMLBody `xml:"body"`
}

// OPMLHead holds the document title and creation date
type OPMLHead struct {
	Title       string `xml:"title"`
	DateCreated string `xml:"dateCreated"`
}

// OPMLBody holds the subscription outlines
type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

// OPMLOutline is a single feed subscription
type OPMLOutline struct {
	Text   string `xml:"text,attr"`
	Title  string `xml:"title,attr"`
	Type   string `xml:"type,attr"`
	XMLURL string `xml:"xmlUrl,attr"`
}
