package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
	"github.com/city-bureau/city-scrapers-go/internal/storage"
)

// MetricExported counts records written by BlobExporter.
const MetricExported = "items.exported"

// Exporter writes the records produced by one spider run.
type Exporter interface {
	// Export writes records for agency as of now
	Export(ctx context.Context, agency meeting.Agency, now time.Time, records []feed.Record) error
}

// BlobExporter writes batches to a blob store.
type BlobExporter struct {
	store      storage.BlobStore
	feedPrefix string
	metrics    *logger.Metrics
}

// NewBlobExporter creates an exporter writing under feedPrefix, a Go time layout.
func NewBlobExporter(store storage.BlobStore, feedPrefix string, metrics *logger.Metrics) *BlobExporter {
	if metrics == nil {
		metrics = logger.NewMetrics()
	}
	return &BlobExporter{store: store, feedPrefix: feedPrefix, metrics: metrics}
}

// Key returns the object name a batch for agency written at now is stored under.
func (e *BlobExporter) Key(agency meeting.Agency, now time.Time) (string, error) {
	loc, err := agency.Location()
	if err != nil {
		return "", err
	}
	return storage.BatchKey(agency.Spider, now, loc, e.feedPrefix), nil
}

// Export writes records as one NDJSON object. An empty batch is still written
// so the next run sees that the spider ran.
func (e *BlobExporter) Export(ctx context.Context, agency meeting.Agency, now time.Time, records []feed.Record) error {
	key, err := e.Key(agency, now)
	if err != nil {
		return err
	}

	data, err := feed.EncodeLines(records)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	if err := e.store.Put(ctx, key, data, storage.PutOptions{ContentType: storage.ContentTypeJSON}); err != nil {
		return fmt.Errorf("writing batch %s: %w", key, err)
	}

	e.metrics.AddCounter(MetricExported, int64(len(records)))
	logger.Info("Batch exported", logger.Fields{
		"spider":  agency.Spider,
		"key":     key,
		"records": len(records),
	})
	return nil
}
