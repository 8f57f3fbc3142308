// Package spider builds agency scrapers that register colly callbacks and emit
// meetings.
package spider

import (
	"fmt"
	"sort"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/city-bureau/city-scrapers-go/internal/config"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// Emit receives each scraped meeting. It may be called from several goroutines.
type Emit func(m *meeting.Meeting)

// Spider scrapes one agency.
type Spider interface {
	Info() meeting.Agency
	StartURLs() []string
	Register(c *colly.Collector, emit Emit)
}

// Option configures a spider built by FromConfig.
type Option func(*base)

// WithClock sets the clock used for statuses and default year ranges.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// FromConfig builds the spider described by cfg.
func FromConfig(cfg *config.SpiderConfig, opts ...Option) (Spider, error) {
	b, err := newBase(cfg, opts)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.KindLegistar:
		classification := meeting.NotClassified
		if cfg.Classification != "" {
			if classification, err = meeting.ParseClassification(cfg.Classification); err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.Name, err)
			}
		}
		return NewLegistar(b, classification, cfg.LinkTypes, cfg.SinceYear), nil

	case config.KindEventsCalendar:
		categories, err := categoryIndex(cfg.Categories)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		return NewEventsCalendar(b, categories), nil
	}
	return nil, fmt.Errorf("%s: unknown spider kind %q", cfg.Name, cfg.Kind)
}

// categoryIndex inverts classification -> slugs into slug -> classification.
// Classifications are visited in sorted order and the first to claim a slug keeps it.
func categoryIndex(categories map[string][]string) (map[string]meeting.Classification, error) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]meeting.Classification)
	for _, name := range names {
		classification, err := meeting.ParseClassification(name)
		if err != nil {
			return nil, err
		}
		for _, slug := range categories[name] {
			if _, ok := index[slug]; !ok {
				index[slug] = classification
			}
		}
	}
	return index, nil
}

type base struct {
	agency    meeting.Agency
	loc       *time.Location
	startURLs []string
	now       func() time.Time
}

func newBase(cfg *config.SpiderConfig, opts []Option) (*base, error) {
	agency := meeting.Agency{Spider: cfg.Name, Name: cfg.Agency, Timezone: cfg.Timezone}
	loc, err := agency.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	b := &base{
		agency:    agency,
		loc:       loc,
		startURLs: cfg.StartURLs,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *base) Info() meeting.Agency { return b.agency }

func (b *base) StartURLs() []string { return b.startURLs }

func (b *base) defaultSource() string {
	if len(b.startURLs) == 0 {
		return ""
	}
	return b.startURLs[0]
}

// finish sets the derived status and scraper ID.
func (b *base) finish(m *meeting.Meeting, identifier, text string) {
	m.Status = meeting.StatusFor(m, text, b.now().In(b.loc))
	m.ID = meeting.GenerateID(b.agency.Spider, m, identifier)
}
