package diff

import (
	"fmt"

	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
)

// DuplicateScrapeError is returned when a live item repeats a scraper ID already
// seen this run. The item is dropped.
type DuplicateScrapeError struct {
	ID string
}

func (e *DuplicateScrapeError) Error() string {
	return fmt.Sprintf("duplicate scraper id %q", e.ID)
}

// Is makes a DuplicateScrapeError match pipeline.ErrDrop.
func (e *DuplicateScrapeError) Is(target error) bool {
	return target == pipeline.ErrDrop
}

// Backlog drop reasons. Both match pipeline.ErrDrop.
var (
	ErrBacklogSuperseded = fmt.Errorf("%w: live item exists", pipeline.ErrDrop)
	ErrBacklogExpired    = fmt.Errorf("%w: meeting already started", pipeline.ErrDrop)
)
