package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/logger"
)

// MalformedBackupError reports a previous batch that could not be parsed. It is
// fatal for the run.
type MalformedBackupError struct {
	Key  string
	Line int
	Err  error
}

func (e *MalformedBackupError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed backup %s at line %d: %v", e.Key, e.Line, e.Err)
	}
	return fmt.Sprintf("malformed backup %s: %v", e.Key, e.Err)
}

func (e *MalformedBackupError) Unwrap() error { return e.Err }

// BatchKey is the object name for one spider batch written at now:
// <prefix>/<HHMM>/<spider>.json, with prefix a Go time layout.
func BatchKey(spider string, now time.Time, loc *time.Location, prefix string) string {
	if loc != nil {
		now = now.In(loc)
	}
	return path.Join(now.Format(prefix), now.Format("1504"), spider+".json")
}

// belongsTo reports whether an object name is a batch of spider.
func belongsTo(name, spider string) bool {
	return strings.HasPrefix(path.Base(name), spider+".")
}

// latestBatch returns the last-named batch of spider among objects.
func latestBatch(objects []Object, spider string) (string, bool) {
	var latest string
	for _, obj := range objects {
		if belongsTo(obj.Name, spider) && obj.Name > latest {
			latest = obj.Name
		}
	}
	return latest, latest != ""
}

// PreviousLoader finds and parses the most recent batch a spider wrote.
type PreviousLoader struct {
	Store BlobStore
	// FeedPrefix is the Go time layout used to partition batches by day
	FeedPrefix string
	// MaxDaysPrevious is how many days before asOf are searched
	MaxDaysPrevious int
}

// Load searches the day of asOf and then up to MaxDaysPrevious earlier days,
// stopping at the first day holding any batch for spider. asOf should be in the
// spider's time zone. No batch in the window yields an empty result.
func (l *PreviousLoader) Load(ctx context.Context, spider string, asOf time.Time) ([]feed.Record, error) {
	for days := 0; days <= l.MaxDaysPrevious; days++ {
		prefix := asOf.AddDate(0, 0, -days).Format(l.FeedPrefix)
		objects, err := l.Store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("listing previous batches: %w", err)
		}

		key, ok := latestBatch(objects, spider)
		if !ok {
			continue
		}

		data, err := l.Store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetching previous batch: %w", err)
		}

		records, err := feed.ParseLines(data)
		if err != nil {
			malformed := &MalformedBackupError{Key: key, Err: err}
			var syntaxErr *feed.SyntaxError
			if errors.As(err, &syntaxErr) {
				malformed.Line = syntaxErr.Line
			}
			return nil, malformed
		}

		logger.Info("Loaded previous batch", logger.Fields{
			"spider":  spider,
			"key":     key,
			"records": len(records),
		})
		return records, nil
	}

	logger.Info("No previous batch found", logger.Fields{
		"spider": spider,
		"days":   l.MaxDaysPrevious + 1,
	})
	return []feed.Record{}, nil
}
