package feed

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// ToOCD converts a meeting into an Open Civic Data event record.
// https://opencivicdata.readthedocs.io/en/latest/data/event.html
//
// Times are written in the agency's time zone with an explicit offset.
func ToOCD(m *meeting.Meeting, agency meeting.Agency, now time.Time) Record {
	id := m.PersistentID
	if id == "" {
		id = "ocd-event/" + newTimeUUID()
	}

	loc := m.Start.Location()
	links := make([]interface{}, 0, len(m.Links))
	for _, link := range m.Links {
		links = append(links, map[string]interface{}{"note": link.Title, "url": link.Href})
	}

	return Record{
		"_type":          "event",
		"_id":            id,
		"updated_at":     now.In(loc).Format(OffsetLayout),
		"name":           m.Title,
		"description":    m.Description,
		"classification": string(m.Classification),
		"status":         string(m.Status),
		"all_day":        m.AllDay,
		"start_time":     m.Start.Format(OffsetLayout),
		"end_time":       m.End.In(loc).Format(OffsetLayout),
		"timezone":       agency.Timezone,
		"location": map[string]interface{}{
			"url":         "",
			"name":        strings.TrimSpace(m.Location.Name + " " + m.Location.Address),
			"coordinates": nil,
		},
		"documents": []interface{}{},
		"links":     links,
		"sources":   []interface{}{map[string]interface{}{"url": m.Source, "note": ""}},
		"participants": []interface{}{
			map[string]interface{}{
				"note":        "host",
				"name":        agency.Name,
				"entity_type": "organization",
				"entity_name": agency.Name,
				"entity_id":   "",
			},
		},
		keyExtra: map[string]interface{}{
			KeyID:                             m.ID,
			meeting.Namespace + "/agency":     agency.Name,
			meeting.Namespace + "/time_notes": m.TimeNotes,
			meeting.Namespace + "/address":    m.Location.Address,
		},
	}
}

// newTimeUUID returns a version 1 UUID, falling back to version 4 if the clock
// sequence cannot be initialized.
func newTimeUUID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Convert dispatches to the formatter for shape.
func Convert(shape Shape, m *meeting.Meeting, agency meeting.Agency, now time.Time) Record {
	if shape == ShapeOCD {
		return ToOCD(m, agency, now)
	}
	return ToJSCalendar(m, agency, now)
}
