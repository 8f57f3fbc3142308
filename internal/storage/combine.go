package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
)

// Aggregate feed names.
const (
	LatestKey   = "latest.json"
	UpcomingKey = "upcoming.json"
)

// Combiner merges the latest batch of every spider into aggregate feeds.
type Combiner struct {
	Store           BlobStore
	FeedPrefix      string
	MaxDaysPrevious int
	Shape           feed.Shape
}

// CombineResult summarizes a Combine call.
type CombineResult struct {
	Prefix   string   `json:"prefix"`
	Batches  []string `json:"batches"`
	Meetings int      `json:"meetings"`
	Upcoming int      `json:"upcoming"`
}

// Combine finds the most recent day with any batches, copies each spider's
// latest batch to <spider>.json, and writes latest.json with every meeting and
// upcoming.json with meetings starting after now minus one day.
func (c *Combiner) Combine(ctx context.Context, spiders []string, now time.Time) (*CombineResult, error) {
	result := &CombineResult{Batches: []string{}}

	var objects []Object
	for days := 0; days <= c.MaxDaysPrevious; days++ {
		prefix := now.AddDate(0, 0, -days).Format(c.FeedPrefix)
		found, err := c.Store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("listing batches: %w", err)
		}
		if len(found) > 0 {
			result.Prefix = prefix
			objects = found
			break
		}
	}

	var meetings []feed.Record
	for _, spider := range spiders {
		key, ok := latestBatch(objects, spider)
		if !ok {
			continue
		}

		data, err := c.Store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		records, err := feed.ParseLines(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", key, err)
		}
		meetings = append(meetings, records...)

		if err := c.Store.Copy(ctx, key, path.Base(key)); err != nil {
			return nil, err
		}
		result.Batches = append(result.Batches, key)
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].StartText(c.Shape) < meetings[j].StartText(c.Shape)
	})

	cutoff := now.Add(-24 * time.Hour).Format(feed.LocalLayout)
	upcoming := make([]feed.Record, 0, len(meetings))
	for _, m := range meetings {
		if start := m.StartText(c.Shape); len(start) >= len(feed.LocalLayout) && start[:len(feed.LocalLayout)] > cutoff {
			upcoming = append(upcoming, m)
		}
	}

	if err := c.write(ctx, LatestKey, meetings); err != nil {
		return nil, err
	}
	if err := c.write(ctx, UpcomingKey, upcoming); err != nil {
		return nil, err
	}

	result.Meetings = len(meetings)
	result.Upcoming = len(upcoming)

	logger.Info("Combined feeds", logger.Fields{
		"prefix":   result.Prefix,
		"batches":  len(result.Batches),
		"meetings": result.Meetings,
		"upcoming": result.Upcoming,
	})
	return result, nil
}

func (c *Combiner) write(ctx context.Context, key string, records []feed.Record) error {
	data, err := feed.EncodeLines(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.Store.Put(ctx, key, data, PutOptions{
		ContentType:  ContentTypeJSON,
		CacheControl: CacheNoCache,
	})
}
