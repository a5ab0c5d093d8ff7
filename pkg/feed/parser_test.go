package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
	<title>Test Feed</title>
	<link>http://example.com</link>
	<description>Test Description</description>
	<item>
		<title>Test Article 1</title>
		<link>http://example.com/article1</link>
		<description>Article 1 &lt;b&gt;description&lt;/b&gt;</description>
		<content:encoded><![CDATA[<p>Full content of article 1</p>]]></content:encoded>
		<pubDate>Tue, 03 Jan 2006 15:04:05 -0700</pubDate>
		<guid>http://example.com/article1</guid>
		<author>test@example.com (Test Author)</author>
		<category>Technology</category>
	</item>
	<item>
		<title>Test Article 2</title>
		<link>http://example.com/article2</link>
		<description>Article 2 description</description>
		<pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
	</item>
</channel>
</rss>`

type statusRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (s *statusRecorder) RecordHTTPStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
}

func TestHTTPParser_Parse(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSS))
	}))
	defer ts.Close()

	rec := &statusRecorder{}
	feed, err := NewHTTPParser(5*time.Second, "test-agent", rec).Parse(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, []int{http.StatusOK}, rec.codes)

	assert.Equal(t, "Test Feed", feed.Title)
	assert.Equal(t, "Test Description", feed.Description)
	assert.Equal(t, "http://example.com", feed.Link)
	assert.Equal(t, time.Date(2006, 1, 3, 22, 4, 5, 0, time.UTC), feed.Updated.UTC(), "latest item date when channel has none")

	require.Len(t, feed.Items, 2)
	item1 := feed.Items[0]
	assert.Equal(t, "Test Article 1", item1.Title)
	assert.Equal(t, "http://example.com/article1", item1.Link)
	assert.Equal(t, "Article 1 <b>description</b>", item1.Description)
	assert.Equal(t, "<p>Full content of article 1</p>", item1.Content)
	assert.Equal(t, "http://example.com/article1", item1.GUID)
	assert.Equal(t, "Test Author", item1.Author)
	assert.Equal(t, []string{"Technology"}, item1.Categories)
	assert.False(t, item1.Published.IsZero())

	item2 := feed.Items[1]
	assert.Equal(t, "http://example.com/article2", item2.GUID, "guid falls back to link")
}

func TestHTTPParser_ParseAtom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Test Atom Feed</title>
	<link href="http://example.com"/>
	<subtitle>Test Subtitle</subtitle>
	<updated>2006-01-05T10:00:00Z</updated>
	<entry>
		<title>Atom Entry 1</title>
		<link href="http://example.com/entry1"/>
		<id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
		<updated>2006-01-02T15:04:05Z</updated>
		<summary>Entry 1 summary</summary>
		<author><name>John Doe</name></author>
	</entry>
</feed>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atom))
	}))
	defer ts.Close()

	feed, err := NewHTTPParser(5*time.Second, "", nil).Parse(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "Test Atom Feed", feed.Title)
	assert.Equal(t, "Test Subtitle", feed.Description)
	assert.Equal(t, time.Date(2006, 1, 5, 10, 0, 0, 0, time.UTC), feed.Updated.UTC())

	require.Len(t, feed.Items, 1)
	item := feed.Items[0]
	assert.Equal(t, "Atom Entry 1", item.Title)
	assert.Equal(t, "http://example.com/entry1", item.Link)
	assert.Equal(t, "urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a", item.GUID)
	assert.Equal(t, "John Doe", item.Author)
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), item.Published.UTC())
}

func TestHTTPParser_ParseErrors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		rec := &statusRecorder{}
		_, err := NewHTTPParser(5*time.Second, "", rec).Parse(context.Background(), ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 500")
		assert.Equal(t, []int{http.StatusInternalServerError}, rec.codes)
	})

	t.Run("invalid xml", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not xml"))
		}))
		defer ts.Close()

		_, err := NewHTTPParser(5*time.Second, "", nil).Parse(context.Background(), ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse feed")
	})

	t.Run("timeout", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("too late"))
		}))
		defer ts.Close()

		_, err := NewHTTPParser(50*time.Millisecond, "", nil).Parse(context.Background(), ts.URL)
		require.Error(t, err)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewHTTPParser(5*time.Second, "", nil).Parse(context.Background(), "not-a-url")
		require.Error(t, err)
	})
}
