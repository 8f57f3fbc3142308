// Package crawl runs a live crawl and feeds its items through a pipeline chain.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
)

// Counter names.
const (
	MetricScraped = "items.scraped"
	MetricDropped = "items.dropped"
)

// ErrClosed is returned by Emit once the engine has shut down.
var ErrClosed = errors.New("crawl engine closed")

// Crawler is a live item source. Crawl must not return until every emit call it
// made has returned.
type Crawler interface {
	Crawl(ctx context.Context, emit func(pipeline.Item)) error
}

// CrawlerFunc adapts a function to a Crawler.
type CrawlerFunc func(ctx context.Context, emit func(pipeline.Item)) error

func (f CrawlerFunc) Crawl(ctx context.Context, emit func(pipeline.Item)) error {
	return f(ctx, emit)
}

// Result is the output of one run.
type Result struct {
	Records  []feed.Record
	Scraped  int
	Injected int
	Dropped  int
	Rounds   int
	Duration time.Duration
}

// Engine drives a Crawler. Items are processed one at a time on the goroutine
// calling Run. When the live crawl has finished and no items are queued the
// engine is idle: it runs the idle hooks, processes anything they emitted, and
// repeats while a hook requested keep-alive.
type Engine struct {
	chain   *pipeline.Chain
	log     *logger.Logger
	metrics *logger.Metrics

	mu        sync.Mutex
	hooks     map[int]func(context.Context)
	nextHook  int
	keepAlive bool
	pending   []pipeline.Item
	started   bool
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets where counters are recorded.
func WithMetrics(m *logger.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine that runs every item through chain.
func NewEngine(chain *pipeline.Chain, opts ...Option) *Engine {
	e := &Engine{
		chain:   chain,
		log:     logger.Default(),
		metrics: logger.NewMetrics(),
		hooks:   make(map[int]func(context.Context)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnIdle registers a hook run on every idle round. Hooks run in registration order.
func (e *Engine) OnIdle(hook func(ctx context.Context)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextHook
	e.nextHook++
	e.hooks[id] = hook

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.hooks, id)
	}
}

// RequestKeepAlive keeps the engine open for another idle round.
func (e *Engine) RequestKeepAlive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keepAlive = true
}

// Emit queues an item for processing through the chain. Queued items are
// processed once the current idle hooks return.
func (e *Engine) Emit(ctx context.Context, item pipeline.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.pending = append(e.pending, item)
	return nil
}

// Run crawls until the crawler is exhausted and an idle round ends without
// keep-alive. A non-drop pipeline error aborts the crawl.
func (e *Engine) Run(ctx context.Context, crawler Crawler) (*Result, error) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil, errors.New("crawl engine already started")
	}
	e.started = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
	}()

	start := time.Now()
	result := &Result{Records: []feed.Record{}}

	if err := e.runLive(ctx, crawler, result); err != nil {
		return nil, err
	}
	if err := e.runIdle(ctx, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	e.metrics.RecordTiming("crawl.duration", result.Duration)
	e.log.Info("Crawl finished", logger.Fields{
		"records":  len(result.Records),
		"scraped":  result.Scraped,
		"injected": result.Injected,
		"dropped":  result.Dropped,
		"rounds":   result.Rounds,
	})
	return result, nil
}

func (e *Engine) runLive(ctx context.Context, crawler Crawler, result *Result) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan pipeline.Item)
	done := make(chan error, 1)

	go func() {
		done <- crawler.Crawl(ctx, func(item pipeline.Item) {
			select {
			case items <- item:
			case <-ctx.Done():
			}
		})
	}()

	for {
		select {
		case item := <-items:
			result.Scraped++
			e.metrics.IncrCounter(MetricScraped)
			if err := e.process(ctx, item, result); err != nil {
				cancel()
				<-done
				return err
			}
		case err := <-done:
			if err != nil {
				return fmt.Errorf("crawling: %w", err)
			}
			return nil
		}
	}
}

func (e *Engine) runIdle(ctx context.Context, result *Result) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Rounds++

		e.mu.Lock()
		e.keepAlive = false
		hooks := e.idleHooks()
		e.mu.Unlock()

		for _, hook := range hooks {
			hook(ctx)
		}

		for {
			item, ok := e.popPending()
			if !ok {
				break
			}
			result.Injected++
			if err := e.process(ctx, item, result); err != nil {
				return err
			}
		}

		e.mu.Lock()
		keepAlive := e.keepAlive
		e.mu.Unlock()
		if !keepAlive {
			return nil
		}
	}
}

// idleHooks returns the registered hooks in order. Callers hold e.mu.
func (e *Engine) idleHooks() []func(context.Context) {
	ids := make([]int, 0, len(e.hooks))
	for id := range e.hooks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	hooks := make([]func(context.Context), 0, len(ids))
	for _, id := range ids {
		hooks = append(hooks, e.hooks[id])
	}
	return hooks
}

func (e *Engine) popPending() (pipeline.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return pipeline.Item{}, false
	}
	item := e.pending[0]
	e.pending = e.pending[1:]
	return item, true
}

func (e *Engine) process(ctx context.Context, item pipeline.Item, result *Result) error {
	out, err := e.chain.Process(ctx, item)
	if err != nil {
		if pipeline.IsDrop(err) {
			result.Dropped++
			e.metrics.IncrCounter(MetricDropped)
			e.log.Debug("Item dropped", logger.Fields{
				"kind":   item.Kind.String(),
				"reason": err.Error(),
			})
			return nil
		}
		return fmt.Errorf("processing %s item: %w", item.Kind, err)
	}
	if out.Record == nil {
		return fmt.Errorf("%s item left the pipeline without a record", out.Kind)
	}
	result.Records = append(result.Records, out.Record)
	return nil
}
