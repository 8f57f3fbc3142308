package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/city-bureau/city-scrapers-go/internal/config"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	store, err := NewLocalStore(filepath.Join(tmpDir, "feeds"))
	require.NoError(t, err, "failed to create store")

	_, err = os.Stat(store.Dir())
	require.NoError(t, err, "data directory not created")

	puts := map[string]string{
		"2026/10/19/0900/chi_board.json": `{"a":1}`,
		"2026/10/19/1100/chi_board.json": `{"a":2}`,
		"2026/10/18/0900/chi_board.json": `{"a":0}`,
	}
	for name, data := range puts {
		require.NoError(t, store.Put(ctx, name, []byte(data), PutOptions{ContentType: ContentTypeJSON}), name)
	}

	objects, err := store.List(ctx, "2026/10/19")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "2026/10/19/0900/chi_board.json", objects[0].Name)
	assert.Equal(t, "2026/10/19/1100/chi_board.json", objects[1].Name)
	assert.False(t, objects[0].LastModified.IsZero(), "LastModified not populated")

	data, err := store.Get(ctx, "2026/10/19/1100/chi_board.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	require.NoError(t, store.Copy(ctx, "2026/10/19/1100/chi_board.json", "chi_board.json"))
	data, err = store.Get(ctx, "chi_board.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	_, err = store.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewLocalStore("~/city-scrapers")
	require.NoError(t, err, "failed to create store")
	assert.Equal(t, filepath.Join(home, "city-scrapers"), store.Dir())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "b.json", []byte("b"), PutOptions{CacheControl: CacheNoCache}))
	require.NoError(t, store.Put(ctx, "a.json", []byte("a"), PutOptions{}))

	objects, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "a.json", objects[0].Name)

	opts, ok := store.Options("b.json")
	require.True(t, ok)
	assert.Equal(t, CacheNoCache, opts.CacheControl)

	assert.ErrorIs(t, store.Copy(ctx, "nope.json", "c.json"), ErrNotFound)
}

func TestOpen(t *testing.T) {
	cfg := config.NewStorageConfig()
	cfg.Local.Dir = t.TempDir()

	store, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	cfg.Provider = config.ProviderS3
	cfg.S3.Endpoint = "localhost:9000"
	cfg.S3.Bucket = "feeds"
	store, err = Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	cfg.Provider = "ftp"
	_, err = Open(cfg)
	assert.Error(t, err)
}
