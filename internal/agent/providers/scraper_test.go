package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rssFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Greenhouse Grower News</title>
<item><title> LED costs fall </title><link>https://news.example/led</link>
<description>&lt;p&gt;Fixture prices &lt;b&gt;dropped&lt;/b&gt; again.&lt;/p&gt;</description>
<pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://news.example/2</link></item>
<item><title>Third</title><link>https://news.example/3</link></item>
</channel></rss>`

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	items, err := NewRSSFetcher(srv.Client()).FetchFeed(context.Background(), srv.URL, 2)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first := items[0]
	if first.Title != "LED costs fall" || first.Source != "Greenhouse Grower News" || first.Link != "https://news.example/led" {
		t.Errorf("first = %+v", first)
	}
	if first.Published == nil || first.Published.Format("2006-01-02") != "2025-01-06" {
		t.Errorf("published = %v", first.Published)
	}

	text, err := HTMLText(first.Description)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Fixture prices dropped again." {
		t.Errorf("HTMLText = %q", text)
	}
}

func TestScraperSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/meta":
			_, _ = w.Write([]byte(`<html><head><meta name="description" content="Growers report record spring sales."></head><body></body></html>`))
		default:
			_, _ = w.Write([]byte(`<html><body><article><p>short</p><p>This paragraph is long enough to serve as a summary when the page has no meta description at all.</p></article></body></html>`))
		}
	}))
	defer srv.Close()

	s := NewWebScraper(5 * time.Second)
	got, err := s.Summary(srv.URL + "/meta")
	if err != nil || got != "Growers report record spring sales." {
		t.Errorf("meta summary = %q, %v", got, err)
	}
	got, err = s.Summary(srv.URL + "/plain")
	if err != nil || got == "" || got == "short" {
		t.Errorf("paragraph summary = %q, %v", got, err)
	}
}
