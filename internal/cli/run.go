package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/config"
	"github.com/city-bureau/city-scrapers-go/internal/crawl"
	"github.com/city-bureau/city-scrapers-go/internal/diff"
	"github.com/city-bureau/city-scrapers-go/internal/exporter"
	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
	"github.com/city-bureau/city-scrapers-go/internal/spider"
	"github.com/city-bureau/city-scrapers-go/internal/storage"
)

// RunSummary describes one spider run.
type RunSummary struct {
	Spider     string           `json:"spider"`
	StartedAt  time.Time        `json:"started_at"`
	Previous   int              `json:"previous"`
	Records    int              `json:"records"`
	Scraped    int              `json:"scraped"`
	Injected   int              `json:"injected"`
	Dropped    int              `json:"dropped"`
	Duration   string           `json:"duration"`
	Exported   bool             `json:"exported"`
	Validation pipeline.Report  `json:"validation"`
	Counters   map[string]int64 `json:"counters"`
}

// Runner runs spiders through the full pipeline.
type Runner struct {
	Config *config.Config
	Store  storage.BlobStore
	// Exporter receives finished batches. Nil skips exporting.
	Exporter exporter.Exporter
	// EnforceValidation fails runs below the validation threshold even when
	// the configuration does not enforce it.
	EnforceValidation bool
	Now               func() time.Time
	NewCrawler        func(s spider.Spider) crawl.Crawler
}

// NewRunner creates a runner crawling with colly.
func NewRunner(cfg *config.Config, store storage.BlobStore, exp exporter.Exporter) *Runner {
	return &Runner{
		Config:   cfg,
		Store:    store,
		Exporter: exp,
		Now:      time.Now,
		NewCrawler: func(s spider.Spider) crawl.Crawler {
			return crawl.NewCollyCrawler(s)
		},
	}
}

// Run crawls one spider, reconciles it against its previous batch and exports
// the result. The summary is returned with validation errors so the report can
// still be shown.
func (r *Runner) Run(ctx context.Context, sc *config.SpiderConfig) (*RunSummary, error) {
	shape, err := feed.ParseShape(r.Config.Output.Format)
	if err != nil {
		return nil, err
	}

	s, err := spider.FromConfig(sc, spider.WithClock(r.Now))
	if err != nil {
		return nil, err
	}
	agency := s.Info()
	loc, err := agency.Location()
	if err != nil {
		return nil, err
	}
	now := r.Now().In(loc)
	metrics := logger.NewMetrics()
	log := logger.Default().With(logger.Fields{"spider": agency.Spider})

	summary := &RunSummary{Spider: agency.Spider, StartedAt: now}

	validation := pipeline.NewValidation(r.Config.Validation.Threshold, r.Config.Validation.Enforce || r.EnforceValidation)
	stages := []pipeline.Stage{pipeline.Defaults{}, pipeline.Normalize{}, validation}

	var diffEngine *diff.Engine
	if r.Config.Diff.Enabled {
		loader := &storage.PreviousLoader{
			Store:           r.Store,
			FeedPrefix:      r.Config.Storage.FeedPrefix,
			MaxDaysPrevious: r.Config.Storage.MaxDaysPrevious,
		}
		previous, err := loader.Load(ctx, agency.Spider, now)
		if err != nil {
			return nil, err
		}
		summary.Previous = len(previous)
		diffEngine = diff.NewEngine(shape, previous, loc,
			diff.WithClock(r.Now),
			diff.WithLogger(log),
			diff.WithMetrics(metrics),
		)
		stages = append(stages, diffEngine)
	}
	stages = append(stages, &pipeline.Format{Shape: shape, Agency: agency, Now: r.Now})

	engine := crawl.NewEngine(pipeline.NewChain(stages...), crawl.WithLogger(log), crawl.WithMetrics(metrics))
	var scheduler *diff.Scheduler
	if diffEngine != nil {
		scheduler = diff.Attach(diffEngine, engine)
	}

	result, err := engine.Run(ctx, r.NewCrawler(s))
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", agency.Spider, err)
	}
	if scheduler != nil && scheduler.Err() != nil {
		return nil, fmt.Errorf("replaying previous batch for %s: %w", agency.Spider, scheduler.Err())
	}

	summary.Records = len(result.Records)
	summary.Scraped = result.Scraped
	summary.Injected = result.Injected
	summary.Dropped = result.Dropped
	summary.Duration = result.Duration.String()
	summary.Validation = validation.Report()

	if err := validation.Check(agency.Spider); err != nil {
		summary.Counters = metrics.Snapshot().Counters
		return summary, err
	}

	if r.Exporter != nil {
		if err := r.Exporter.Export(ctx, agency, now, result.Records); err != nil {
			return nil, err
		}
		summary.Exported = true
	}
	summary.Counters = metrics.Snapshot().Counters
	return summary, nil
}
