// Package pipeline defines the items that flow from spiders to exporters and the
// ordered chain of stages that processes them.
package pipeline

import (
	"fmt"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// Kind tags where an item entered the pipeline. It is fixed at ingestion.
type Kind int

const (
	// KindCurrent is a meeting scraped during this run.
	KindCurrent Kind = iota
	// KindBacklogOCD is a previous-run record in Open Civic Data shape.
	KindBacklogOCD
	// KindBacklogCalendar is a previous-run record in JSCalendar shape.
	KindBacklogCalendar
)

func (k Kind) String() string {
	switch k {
	case KindCurrent:
		return "current"
	case KindBacklogOCD:
		return "backlog_ocd"
	case KindBacklogCalendar:
		return "backlog_calendar"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBacklog reports whether k is one of the backlog kinds.
func (k Kind) IsBacklog() bool {
	return k == KindBacklogOCD || k == KindBacklogCalendar
}

// Shape returns the record shape of a backlog kind.
func (k Kind) Shape() (feed.Shape, bool) {
	switch k {
	case KindBacklogOCD:
		return feed.ShapeOCD, true
	case KindBacklogCalendar:
		return feed.ShapeJSCalendar, true
	}
	return "", false
}

// BacklogKind is the backlog kind for records of shape.
func BacklogKind(shape feed.Shape) Kind {
	if shape == feed.ShapeOCD {
		return KindBacklogOCD
	}
	return KindBacklogCalendar
}

// Item is one unit of pipeline work. Current items carry a Meeting until the
// format stage fills Record; backlog items carry only a Record.
type Item struct {
	Kind    Kind
	Meeting *meeting.Meeting
	Record  feed.Record
}

// Current wraps a freshly scraped meeting.
func Current(m *meeting.Meeting) Item {
	return Item{Kind: KindCurrent, Meeting: m}
}

// Backlog wraps a previous-run record of shape.
func Backlog(shape feed.Shape, r feed.Record) Item {
	return Item{Kind: BacklogKind(shape), Record: r}
}
