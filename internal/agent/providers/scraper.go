package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
)

const userAgent = "GrowersPlatformBot/1.0 (+https://growers.example/bot)"

// NewsItem is one entry of an RSS or Atom feed.
type NewsItem struct {
	Title       string
	Link        string
	Description string
	Source      string
	Published   *time.Time
}

type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	if client != nil {
		p.Client = client
	}
	return &RSSFetcher{parser: p}
}

// FetchFeed returns at most limit items (0 = all) in feed order.
func (f *RSSFetcher) FetchFeed(ctx context.Context, url string, limit int) ([]NewsItem, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	n := len(feed.Items)
	if limit > 0 && limit < n {
		n = limit
	}

	items := make([]NewsItem, 0, n)
	for _, item := range feed.Items[:n] {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		items = append(items, NewsItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: item.Description,
			Source:      strings.TrimSpace(feed.Title),
			Published:   published,
		})
	}
	return items, nil
}

// HTMLText flattens an HTML fragment to its visible text.
func HTMLText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// WebScraper reads article pages.
type WebScraper struct {
	collector *colly.Collector
}

func NewWebScraper(timeout time.Duration) *WebScraper {
	c := colly.NewCollector(colly.UserAgent(userAgent), colly.MaxBodySize(2<<20), colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)
	return &WebScraper{collector: c}
}

// Summary returns the page's meta description, falling back to its first long paragraph.
func (s *WebScraper) Summary(url string) (string, error) {
	var meta, para string

	// clone per request so callbacks never leak between pages
	c := s.collector.Clone()
	c.OnHTML(`meta[name="description"], meta[property="og:description"]`, func(e *colly.HTMLElement) {
		if meta == "" {
			meta = strings.TrimSpace(e.Attr("content"))
		}
	})
	c.OnHTML("article p, main p, .article-content p", func(e *colly.HTMLElement) {
		if text := strings.TrimSpace(e.Text); para == "" && len(text) > 80 {
			para = text
		}
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("visit %s: %w", url, err)
	}
	if meta != "" {
		return meta, nil
	}
	return para, nil
}
