// Package diff reconciles a spider's live output with the batch it produced on
// a previous run.
//
// A run moves through two phases. While LIVE, every freshly scraped meeting is
// recorded in a seen set and stamped with the persistent ID its scraper ID was
// given before, if any. Once the host crawl goes idle the Scheduler switches to
// DRAINING: every previous record is replayed through the same pipeline, and
// those with no live counterpart and a start time still ahead are re-emitted
// with status "cancelled".
//
// An Engine is owned by a single run and is not safe for concurrent use; the
// host must call Process from one goroutine.
package diff
