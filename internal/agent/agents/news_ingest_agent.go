package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"greenhouse.org/growersplatform/internal/agent/providers"
	"greenhouse.org/growersplatform/internal/entity"
	resourceDto "greenhouse.org/growersplatform/internal/modules/resource/dto"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/metrics"
	"greenhouse.org/growersplatform/pkg/sanitize"
)

// ResourceCreator stores a resource unless its URL is already known.
type ResourceCreator interface {
	CreateIfAbsent(ctx context.Context, input resourceDto.ResourceInput) (bool, error)
}

type NewsIngestConfig struct {
	Schedule        string
	Feeds           []string
	MaxItemsPerFeed int
	MaxSummaryRunes int
	ScrapeTimeout   time.Duration
	// SeenKey is the Redis set of links already handled; unused without Redis.
	SeenKey string
}

func DefaultNewsIngestConfig() NewsIngestConfig {
	return NewsIngestConfig{
		Schedule:        "0 */6 * * *",
		MaxItemsPerFeed: 10,
		MaxSummaryRunes: 600,
		ScrapeTimeout:   15 * time.Second,
		SeenKey:         "agent:news_ingest:seen",
	}
}

// NewsIngestAgent turns feed items into industry_news resources.
type NewsIngestAgent struct {
	resources ResourceCreator
	redis     *redis.Client
	fetcher   *providers.RSSFetcher
	scraper   *providers.WebScraper
	log       *logger.Logger
	config    NewsIngestConfig
}

func NewNewsIngestAgent(resources ResourceCreator, rdb *redis.Client, fetcher *providers.RSSFetcher, log *logger.Logger, config NewsIngestConfig) *NewsIngestAgent {
	return &NewsIngestAgent{
		resources: resources,
		redis:     rdb,
		fetcher:   fetcher,
		scraper:   providers.NewWebScraper(config.ScrapeTimeout),
		log:       log,
		config:    config,
	}
}

func (a *NewsIngestAgent) GetName() string {
	return "news-ingest"
}

func (a *NewsIngestAgent) GetSchedule() string {
	return a.config.Schedule
}

// Execute processes every feed; a failing feed is logged and the rest continue.
func (a *NewsIngestAgent) Execute(ctx context.Context) error {
	total := 0
	for _, url := range a.config.Feeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := a.processFeed(ctx, url)
		if err != nil {
			a.log.Warn("news feed failed", "feed", url, "error", err)
			continue
		}
		total += n
	}
	a.log.Info("news ingest finished", "feeds", len(a.config.Feeds), "created", total)
	return nil
}

func (a *NewsIngestAgent) processFeed(ctx context.Context, url string) (int, error) {
	items, err := a.fetcher.FetchFeed(ctx, url, a.config.MaxItemsPerFeed)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}

	created := 0
	for _, item := range items {
		if item.Link == "" || item.Title == "" || a.seen(ctx, item.Link) {
			continue
		}

		ok, err := a.resources.CreateIfAbsent(ctx, a.toResource(item))
		if err != nil {
			a.log.Warn("failed to store news item", "link", item.Link, "error", err)
			continue
		}
		a.markSeen(ctx, item.Link)
		if ok {
			created++
			metrics.NewsIngested.Inc()
		}
	}
	return created, nil
}

func (a *NewsIngestAgent) toResource(item providers.NewsItem) resourceDto.ResourceInput {
	summary, err := providers.HTMLText(item.Description)
	if err != nil {
		summary = ""
	}
	if summary == "" {
		if summary, err = a.scraper.Summary(item.Link); err != nil {
			a.log.Warn("failed to scrape news summary", "link", item.Link, "error", err)
		}
	}

	data := map[string]any{"source": item.Source}
	if item.Published != nil {
		data["published_at"] = item.Published.UTC().Format(time.DateOnly)
	}
	return resourceDto.ResourceInput{
		Type:    string(entity.ResourceIndustryNews),
		Title:   sanitize.Truncate(sanitize.Text(item.Title), 300),
		URL:     item.Link,
		Summary: sanitize.Truncate(summary, a.config.MaxSummaryRunes),
		Tags:    []string{"news"},
		Data:    data,
	}
}

func (a *NewsIngestAgent) seen(ctx context.Context, link string) bool {
	if a.redis == nil {
		return false
	}
	ok, err := a.redis.SIsMember(ctx, a.config.SeenKey, link).Result()
	return err == nil && ok
}

func (a *NewsIngestAgent) markSeen(ctx context.Context, link string) {
	if a.redis == nil {
		return
	}
	if err := a.redis.SAdd(ctx, a.config.SeenKey, link).Err(); err != nil {
		a.log.Warn("failed to record news link", "link", link, "error", err)
	}
}
