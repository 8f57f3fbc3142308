package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
)

func TestCombiner_Combine(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	store := newLoaderStore(t, map[string]string{
		"2026/10/18/0800/chi_board.json": "{\"start\":\"2026-10-25T18:00:00\",\"uid\":\"b2\"}\n" +
			"{\"start\":\"2026-09-01T18:00:00\",\"uid\":\"b1\"}",
		"2026/10/18/0700/chi_board.json": `{"start":"2026-10-01T18:00:00","uid":"stale"}`,
		"2026/10/18/0800/chi_park.json":  `{"start":"2026-10-18T13:00:00","uid":"p1"}`,
		"2026/10/12/0800/chi_old.json":   `{"start":"2026-12-01T18:00:00","uid":"old"}`,
	})

	combiner := &Combiner{
		Store:           store,
		FeedPrefix:      "2006/01/02",
		MaxDaysPrevious: 3,
		Shape:           feed.ShapeJSCalendar,
	}

	result, err := combiner.Combine(ctx, []string{"chi_board", "chi_park", "chi_old"}, now)
	require.NoError(t, err)

	assert.Equal(t, "2026/10/18", result.Prefix)
	assert.Equal(t, []string{"2026/10/18/0800/chi_board.json", "2026/10/18/0800/chi_park.json"}, result.Batches)
	assert.Equal(t, 3, result.Meetings)
	assert.Equal(t, 2, result.Upcoming)

	latest, err := store.Get(ctx, LatestKey)
	require.NoError(t, err)
	records, err := feed.ParseLines(latest)
	require.NoError(t, err)
	uids := make([]string, 0, len(records))
	for _, r := range records {
		uids = append(uids, r.PersistentID(feed.ShapeJSCalendar))
	}
	assert.Equal(t, []string{"b1", "p1", "b2"}, uids)

	upcoming, err := store.Get(ctx, UpcomingKey)
	require.NoError(t, err)
	assert.NotContains(t, string(upcoming), "b1")
	assert.Equal(t, 2, len(strings.Split(string(upcoming), "\n")))

	opts, _ := store.Options(UpcomingKey)
	assert.Equal(t, CacheNoCache, opts.CacheControl)

	copied, err := store.Get(ctx, "chi_park.json")
	require.NoError(t, err)
	assert.Contains(t, string(copied), "p1")
}

func TestCombiner_OCDStartKey(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	store := newLoaderStore(t, map[string]string{
		"2026/10/19/0800/chi_board.json": "{\"start_time\":\"2026-10-25T18:00:00-05:00\"}\n" +
			"{\"start_time\":\"2026-10-02T18:00:00-05:00\"}",
	})

	combiner := &Combiner{Store: store, FeedPrefix: "2006/01/02", MaxDaysPrevious: 3, Shape: feed.ShapeOCD}
	result, err := combiner.Combine(ctx, []string{"chi_board"}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Meetings)
	assert.Equal(t, 1, result.Upcoming)
}

func TestCombiner_NothingToCombine(t *testing.T) {
	store := NewMemoryStore()
	combiner := &Combiner{Store: store, FeedPrefix: "2006/01/02", MaxDaysPrevious: 3, Shape: feed.ShapeJSCalendar}

	result, err := combiner.Combine(context.Background(), []string{"chi_board"}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, result.Meetings)

	latest, err := store.Get(context.Background(), LatestKey)
	require.NoError(t, err)
	assert.Empty(t, latest)
}
