package diff

import "github.com/city-bureau/city-scrapers-go/internal/feed"

// Index maps scraper IDs to the persistent IDs assigned on a previous run.
type Index map[string]string

// BuildIndex indexes previous records of shape. Records missing either ID are
// skipped; if a scraper ID repeats, the last record wins.
func BuildIndex(records []feed.Record, shape feed.Shape) Index {
	index := make(Index, len(records))
	for _, r := range records {
		scraperID, ok := r.ScraperID(shape)
		if !ok {
			continue
		}
		if persistentID := r.PersistentID(shape); persistentID != "" {
			index[scraperID] = persistentID
		}
	}
	return index
}

// Lookup returns the persistent ID for scraperID.
func (idx Index) Lookup(scraperID string) (string, bool) {
	id, ok := idx[scraperID]
	return id, ok
}
