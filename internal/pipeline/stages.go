package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

func currentMeeting(item Item) (*meeting.Meeting, bool) {
	if item.Kind != KindCurrent {
		return nil, false
	}
	return item.Meeting, item.Meeting != nil
}

// Defaults fills optional meeting fields.
type Defaults struct{}

func (Defaults) Name() string { return "defaults" }

func (Defaults) Process(_ context.Context, item Item) (Item, error) {
	if m, ok := currentMeeting(item); ok {
		meeting.ApplyDefaults(m)
	}
	return item, nil
}

// Normalize cleans titles and fills missing end times.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (Normalize) Process(_ context.Context, item Item) (Item, error) {
	if m, ok := currentMeeting(item); ok {
		meeting.Normalize(m)
	}
	return item, nil
}

// Format serializes current meetings into records of Shape. Backlog items are
// already serialized and pass through.
type Format struct {
	Shape  feed.Shape
	Agency meeting.Agency
	Now    func() time.Time
}

// NewFormat returns a Format stage using the wall clock.
func NewFormat(shape feed.Shape, agency meeting.Agency) *Format {
	return &Format{Shape: shape, Agency: agency, Now: time.Now}
}

func (f *Format) Name() string { return "format" }

func (f *Format) Process(_ context.Context, item Item) (Item, error) {
	if item.Kind != KindCurrent {
		return item, nil
	}
	if item.Meeting == nil {
		return Item{}, fmt.Errorf("current item without meeting")
	}
	item.Record = feed.Convert(f.Shape, item.Meeting, f.Agency, f.Now())
	return item, nil
}
