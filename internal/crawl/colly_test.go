package crawl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/city-bureau/city-scrapers-go/internal/config"
	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
	"github.com/city-bureau/city-scrapers-go/internal/spider"
)

const tribeEvents = `{
  "events": [
    {
      "id": 7,
      "title": "Library Board",
      "url": "https://example.org/event/7",
      "start_date_details": {"year": "2026", "month": "11", "day": "02", "hour": "18", "minutes": "00", "seconds": "00"},
      "end_date_details": {"year": "2026", "month": "11", "day": "02", "hour": "19", "minutes": "00", "seconds": "00"},
      "categories": [{"slug": "board"}],
      "venue": []
    },
    {
      "id": 8,
      "title": "Book Sale",
      "url": "https://example.org/event/8",
      "start_date_details": {"year": "2026", "month": "11", "day": "03", "hour": "10", "minutes": "00", "seconds": "00"},
      "end_date_details": {"year": "2026", "month": "11", "day": "03", "hour": "12", "minutes": "00", "seconds": "00"},
      "categories": [{"slug": "sale"}],
      "venue": []
    }
  ]
}`

func TestCollyCrawler_Crawl(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tribeEvents))
	}))
	defer server.Close()

	s, err := spider.FromConfig(&config.SpiderConfig{
		Name:       "chi_library",
		Agency:     "Chicago Public Library",
		Timezone:   "UTC",
		Kind:       config.KindEventsCalendar,
		StartURLs:  []string{server.URL + "/wp-json/tribe/events/v1/events"},
		Categories: map[string][]string{"board": {"board"}},
	}, spider.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	cc := NewCollyCrawler(s)
	cc.Delay = 0

	e, metrics := newTestEngine(pipeline.NewChain(pipeline.Defaults{}, pipeline.Normalize{}, formatStage()))
	result, err := e.Run(context.Background(), cc)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	id, ok := result.Records[0].ScraperID(feed.ShapeJSCalendar)
	require.True(t, ok)
	assert.Equal(t, "chi_library/202611021800/x/library_board", id)
	assert.Equal(t, int64(1), metrics.Counter(MetricScraped))
	assert.Equal(t, DefaultUserAgent, userAgent.Load())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCollyCrawler_DuplicateStartURL(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tribeEvents))
	}))
	defer server.Close()

	logs := &lockedBuffer{}
	prev := logger.Default()
	logger.SetDefault(logger.New(logger.LevelWarn, logs))
	defer logger.SetDefault(prev)

	start := server.URL + "/wp-json/tribe/events/v1/events"
	s, err := spider.FromConfig(&config.SpiderConfig{
		Name:       "chi_library",
		Agency:     "Chicago Public Library",
		Timezone:   "UTC",
		Kind:       config.KindEventsCalendar,
		StartURLs:  []string{start, start},
		Categories: map[string][]string{"board": {"board"}},
	}, spider.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	cc := NewCollyCrawler(s)
	cc.Delay = 0

	var emitted int32
	err = cc.Crawl(context.Background(), func(pipeline.Item) { atomic.AddInt32(&emitted, 1) })
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&emitted))
	assert.NotContains(t, logs.String(), "Failed to visit start URL")
}

func TestCollyCrawler_FailedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := spider.FromConfig(&config.SpiderConfig{
		Name:      "chi_library",
		Agency:    "Chicago Public Library",
		Kind:      config.KindEventsCalendar,
		StartURLs: []string{server.URL},
	})
	require.NoError(t, err)

	var emitted int
	err = NewCollyCrawler(s).Crawl(context.Background(), func(pipeline.Item) { emitted++ })
	require.NoError(t, err)
	assert.Zero(t, emitted)
}

func TestCollyCrawler_Cancelled(t *testing.T) {
	s, err := spider.FromConfig(&config.SpiderConfig{
		Name:      "chi_library",
		Agency:    "Chicago Public Library",
		Kind:      config.KindEventsCalendar,
		StartURLs: []string{"http://127.0.0.1:1/events"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewCollyCrawler(s).Crawl(ctx, func(pipeline.Item) {})
	assert.ErrorIs(t, err, context.Canceled)
}
