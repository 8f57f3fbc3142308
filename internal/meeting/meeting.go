package meeting

import (
	"fmt"
	"strings"
	"time"
)

// Namespace prefixes the project-specific keys in serialized records.
const Namespace = "cityscrapers.org"

// Status is the state of a meeting at the time it was scraped.
type Status string

const (
	StatusCancelled Status = "cancelled"
	StatusTentative Status = "tentative"
	StatusConfirmed Status = "confirmed"
	StatusPassed    Status = "passed"
)

// Statuses lists every allowed status.
var Statuses = []Status{StatusCancelled, StatusTentative, StatusConfirmed, StatusPassed}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Classification is the type of body holding a meeting.
type Classification string

const (
	AdvisoryCommittee Classification = "Advisory Committee"
	Board             Classification = "Board"
	CityCouncil       Classification = "City Council"
	Commission        Classification = "Commission"
	Committee         Classification = "Committee"
	Forum             Classification = "Forum"
	PoliceBeat        Classification = "Police Beat"
	NotClassified     Classification = "Not classified"
)

// Classifications lists every allowed classification.
var Classifications = []Classification{
	AdvisoryCommittee,
	Board,
	CityCouncil,
	Commission,
	Committee,
	Forum,
	PoliceBeat,
	NotClassified,
}

// Valid reports whether c is one of Classifications.
func (c Classification) Valid() bool {
	for _, v := range Classifications {
		if c == v {
			return true
		}
	}
	return false
}

// ParseClassification matches s case-insensitively against the known classifications.
func ParseClassification(s string) (Classification, error) {
	for _, c := range Classifications {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown classification: %q", s)
}

// Location is where a meeting takes place.
type Location struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Link is a document or page related to a meeting.
type Link struct {
	Href  string `json:"href" validate:"required,url"`
	Title string `json:"title"`
}

// Meeting represents one scraped meeting.
type Meeting struct {
	ID             string         `json:"id" validate:"required"`
	PersistentID   string         `json:"persistent_id,omitempty"` // carried across runs once assigned
	Title          string         `json:"title" validate:"required"`
	Description    string         `json:"description"`
	Classification Classification `json:"classification" validate:"classification"`
	Status         Status         `json:"status" validate:"status"`
	Start          time.Time      `json:"start" validate:"required"`
	End            time.Time      `json:"end"`
	AllDay         bool           `json:"all_day"`
	TimeNotes      string         `json:"time_notes"`
	Location       Location       `json:"location"`
	Links          []Link         `json:"links" validate:"dive"`
	Source         string         `json:"source" validate:"required,url"`
}

// Agency identifies the spider that produced a meeting and the body it covers.
type Agency struct {
	Spider   string `json:"spider"`
	Name     string `json:"agency"`
	Timezone string `json:"timezone"`
}

// DefaultTimezone is used when a spider does not set one.
const DefaultTimezone = "America/Chicago"

// Location loads the agency's time zone.
func (a Agency) Location() (*time.Location, error) {
	tz := a.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return loc, nil
}
