package diff

import (
	"context"
	"fmt"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
)

// Counter names.
const (
	MetricStamped    = "items.stamped"
	MetricDuplicate  = "items.duplicate"
	MetricCancelled  = "backlog.cancelled"
	MetricExpired    = "backlog.expired"
	MetricSuperseded = "backlog.superseded"
)

// Engine is the reconciliation stage. It implements pipeline.Stage.
type Engine struct {
	shape    feed.Shape
	loc      *time.Location
	previous []feed.Record
	index    Index
	seen     map[string]struct{}

	now     func() time.Time
	log     *logger.Logger
	metrics *logger.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to expire backlog records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets where counters are recorded.
func WithMetrics(m *logger.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine for a run whose output has the given shape.
// previous is the prior run's batch in that shape; loc interprets start times
// that carry no offset.
func NewEngine(shape feed.Shape, previous []feed.Record, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	e := &Engine{
		shape:    shape,
		loc:      loc,
		previous: previous,
		index:    BuildIndex(previous, shape),
		seen:     make(map[string]struct{}),
		now:      time.Now,
		log:      logger.Default(),
		metrics:  logger.NewMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements pipeline.Stage.
func (e *Engine) Name() string { return "diff" }

// Shape is the record shape this engine reads.
func (e *Engine) Shape() feed.Shape { return e.shape }

// Index returns the correlation index built from the previous batch.
func (e *Engine) Index() Index { return e.index }

// Seen reports whether scraperID has been processed this run.
func (e *Engine) Seen(scraperID string) bool {
	_, ok := e.seen[scraperID]
	return ok
}

// Backlog returns the previous batch tagged for replay, in batch order.
func (e *Engine) Backlog() []pipeline.Item {
	items := make([]pipeline.Item, 0, len(e.previous))
	for _, r := range e.previous {
		items = append(items, pipeline.Backlog(e.shape, r))
	}
	return items
}

// Process reconciles one item. Current items are stamped; backlog items are
// either dropped or returned as cancelled copies.
func (e *Engine) Process(_ context.Context, item pipeline.Item) (pipeline.Item, error) {
	if item.Kind.IsBacklog() {
		return e.processBacklog(item)
	}
	return e.processCurrent(item)
}

func (e *Engine) processCurrent(item pipeline.Item) (pipeline.Item, error) {
	m := item.Meeting
	if m == nil {
		return pipeline.Item{}, fmt.Errorf("current item without meeting")
	}
	if m.ID == "" {
		e.log.Warn("Dropping meeting without scraper id", logger.Fields{"title": m.Title})
		return pipeline.Item{}, pipeline.Drop("meeting without scraper id")
	}

	if e.Seen(m.ID) {
		e.metrics.IncrCounter(MetricDuplicate)
		e.log.Warn("Duplicate meeting dropped", logger.Fields{"id": m.ID})
		return pipeline.Item{}, &DuplicateScrapeError{ID: m.ID}
	}
	e.seen[m.ID] = struct{}{}

	if persistentID, ok := e.index.Lookup(m.ID); ok {
		m.PersistentID = persistentID
		e.metrics.IncrCounter(MetricStamped)
	}
	return item, nil
}

func (e *Engine) processBacklog(item pipeline.Item) (pipeline.Item, error) {
	if shape, _ := item.Kind.Shape(); shape != e.shape {
		return pipeline.Item{}, fmt.Errorf("%s item replayed into %s run", item.Kind, e.shape)
	}

	id, ok := item.Record.ScraperID(e.shape)
	if !ok {
		e.log.Warn("Dropping previous record without scraper id", logger.Fields{
			"persistent_id": item.Record.PersistentID(e.shape),
		})
		return pipeline.Item{}, pipeline.Drop("previous record without scraper id")
	}

	if e.Seen(id) {
		e.metrics.IncrCounter(MetricSuperseded)
		return pipeline.Item{}, fmt.Errorf("%w: %s", ErrBacklogSuperseded, id)
	}

	start, err := item.Record.Start(e.shape, e.loc)
	if err != nil {
		e.log.Warn("Dropping previous record with unreadable start", logger.Fields{
			"id":    id,
			"start": item.Record.StartText(e.shape),
		})
		return pipeline.Item{}, pipeline.Drop("unreadable start time")
	}
	if start.Before(e.now()) {
		e.metrics.IncrCounter(MetricExpired)
		return pipeline.Item{}, fmt.Errorf("%w: %s", ErrBacklogExpired, id)
	}

	e.seen[id] = struct{}{}
	e.metrics.IncrCounter(MetricCancelled)
	e.log.Info("Meeting missing from source, marking cancelled", logger.Fields{
		"id":    id,
		"start": item.Record.StartText(e.shape),
	})

	item.Record = item.Record.WithStatus(meeting.StatusCancelled)
	return item, nil
}
