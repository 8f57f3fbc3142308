package crawl

import (
	"context"
	"errors"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
	"github.com/city-bureau/city-scrapers-go/internal/spider"
)

// DefaultUserAgent identifies the crawler to agency sites.
const DefaultUserAgent = "city-scrapers-go (+https://cityscrapers.org)"

// CollyCrawler crawls a spider's start URLs with a colly collector.
type CollyCrawler struct {
	Spider      spider.Spider
	Parallelism int
	Delay       time.Duration
	UserAgent   string
	// Options are applied after the defaults.
	Options []colly.CollectorOption
}

// NewCollyCrawler creates a crawler with two parallel requests per domain.
func NewCollyCrawler(s spider.Spider) *CollyCrawler {
	return &CollyCrawler{
		Spider:      s,
		Parallelism: 2,
		Delay:       500 * time.Millisecond,
		UserAgent:   DefaultUserAgent,
	}
}

func (cc *CollyCrawler) Crawl(ctx context.Context, emit func(pipeline.Item)) error {
	opts := append([]colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.Async(true),
		colly.UserAgent(cc.UserAgent),
	}, cc.Options...)
	c := colly.NewCollector(opts...)

	if cc.Parallelism > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: cc.Parallelism,
			RandomDelay: cc.Delay,
		}); err != nil {
			return err
		}
	}

	info := cc.Spider.Info()
	c.OnError(func(r *colly.Response, err error) {
		logger.Warn("Request failed", logger.Fields{
			"spider": info.Spider,
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
			"error":  err.Error(),
		})
	})

	cc.Spider.Register(c, func(m *meeting.Meeting) {
		emit(pipeline.Current(m))
	})

	for _, u := range cc.Spider.StartURLs() {
		if err := c.Visit(u); err != nil && !errors.As(err, new(*colly.AlreadyVisitedError)) {
			logger.Warn("Failed to visit start URL", logger.Fields{
				"spider": info.Spider,
				"url":    u,
				"error":  err.Error(),
			})
		}
	}
	c.Wait()
	return ctx.Err()
}
