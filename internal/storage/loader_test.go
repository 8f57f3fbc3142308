package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
)

func newLoaderStore(t *testing.T, objects map[string]string) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	for name, data := range objects {
		require.NoError(t, store.Put(context.Background(), name, []byte(data), PutOptions{}))
	}
	return store
}

func TestBatchKey(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	now := time.Date(2026, time.October, 19, 14, 5, 0, 0, time.UTC)

	assert.Equal(t, "2026/10/19/0905/chi_board.json", BatchKey("chi_board", now, loc, "2006/01/02"))
	assert.Equal(t, "2026-10-19/1405/chi_board.json", BatchKey("chi_board", now, nil, "2006-01-02"))
}

func TestPreviousLoader_Load(t *testing.T) {
	asOf := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		objects map[string]string
		max     int
		wantIDs []string
	}{
		{
			name: "latest batch of today",
			objects: map[string]string{
				"2026/10/19/0100/chi_board.json": `{"cityscrapers.org/id":"old"}`,
				"2026/10/19/0800/chi_board.json": "{\"cityscrapers.org/id\":\"1\"}\n{\"cityscrapers.org/id\":\"2\"}\n",
				"2026/10/19/0900/chi_other.json": `{"cityscrapers.org/id":"other"}`,
			},
			max:     3,
			wantIDs: []string{"1", "2"},
		},
		{
			name: "falls back to earlier day",
			objects: map[string]string{
				"2026/10/16/0800/chi_board.json": `{"cityscrapers.org/id":"3 days ago"}`,
			},
			max:     3,
			wantIDs: []string{"3 days ago"},
		},
		{
			name: "stops at first day with a match",
			objects: map[string]string{
				"2026/10/18/0800/chi_board.json": `{"cityscrapers.org/id":"yesterday"}`,
				"2026/10/17/2300/chi_board.json": `{"cityscrapers.org/id":"older"}`,
			},
			max:     3,
			wantIDs: []string{"yesterday"},
		},
		{
			name: "outside window",
			objects: map[string]string{
				"2026/10/15/0800/chi_board.json": `{"cityscrapers.org/id":"4 days ago"}`,
			},
			max:     3,
			wantIDs: []string{},
		},
		{
			name: "spider name prefix is not a match",
			objects: map[string]string{
				"2026/10/19/0800/chi_board_elections.json": `{"cityscrapers.org/id":"elections"}`,
			},
			max:     3,
			wantIDs: []string{},
		},
		{
			name:    "no batches at all",
			objects: map[string]string{},
			max:     3,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &PreviousLoader{
				Store:           newLoaderStore(t, tt.objects),
				FeedPrefix:      "2006/01/02",
				MaxDaysPrevious: tt.max,
			}

			records, err := loader.Load(context.Background(), "chi_board", asOf)
			require.NoError(t, err)
			require.NotNil(t, records)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				id, _ := r.ScraperID(feed.ShapeJSCalendar)
				ids = append(ids, id)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestPreviousLoader_Malformed(t *testing.T) {
	store := newLoaderStore(t, map[string]string{
		"2026/10/19/0800/chi_board.json": "{\"cityscrapers.org/id\":\"1\"}\n\n{not json}\n",
	})
	loader := &PreviousLoader{Store: store, FeedPrefix: "2006/01/02", MaxDaysPrevious: 3}

	_, err := loader.Load(context.Background(), "chi_board", time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC))

	var malformed *MalformedBackupError
	require.True(t, errors.As(err, &malformed), "got %v", err)
	assert.Equal(t, "2026/10/19/0800/chi_board.json", malformed.Key)
	assert.Equal(t, 3, malformed.Line)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) List(context.Context, string) ([]Object, error) {
	return nil, s.err
}

func TestPreviousLoader_StorageErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	loader := &PreviousLoader{
		Store:           failingStore{MemoryStore: NewMemoryStore(), err: boom},
		FeedPrefix:      "2006/01/02",
		MaxDaysPrevious: 3,
	}

	_, err := loader.Load(context.Background(), "chi_board", time.Now())
	assert.True(t, errors.Is(err, boom))
}
