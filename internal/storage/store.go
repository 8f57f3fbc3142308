// Package storage reads and writes feed batches in blob storage and locates the
// previous run's batch for a spider.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/config"
)

// Content types and cache directives used for feed objects.
const (
	ContentTypeJSON = "application/json"
	CacheNoCache    = "no-cache"
)

// ErrNotFound is returned by Get and Copy when the named object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes one stored blob.
type Object struct {
	Name         string
	LastModified time.Time
}

// PutOptions carries object metadata for Put.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// BlobStore is the storage contract shared by every provider. Names are
// slash-separated keys relative to the store root.
type BlobStore interface {
	// List returns objects whose names start with prefix, sorted by name.
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte, opts PutOptions) error
	Copy(ctx context.Context, src, dst string) error
}

// Open creates the store selected by cfg.
func Open(cfg *config.StorageConfig) (BlobStore, error) {
	switch cfg.Provider {
	case config.ProviderLocal:
		return NewLocalStore(cfg.Local.Dir)
	case config.ProviderS3:
		return NewS3Store(cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
}
