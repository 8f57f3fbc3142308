package feed

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// ToJSCalendar converts a meeting into a JSCalendar event record.
// https://tools.ietf.org/html/draft-ietf-calext-jscalendar-11
//
// The meeting's persistent ID becomes the uid; meetings without one get a new UUID.
func ToJSCalendar(m *meeting.Meeting, agency meeting.Agency, now time.Time) Record {
	uid := m.PersistentID
	if uid == "" {
		uid = uuid.NewString()
	}

	return Record{
		"@type":       "jsevent",
		"uid":         uid,
		"title":       m.Title,
		"updated":     now.Format(LocalLayout),
		"description": m.Description,
		"isAllDay":    m.AllDay,
		"status":      string(m.Status),
		"start":       m.Start.Format(LocalLayout),
		"timeZone":    agency.Timezone,
		"duration":    Duration(m.Start, m.End),
		"locations":   jsLocations(m.Location),
		"links":       jsLinks(m),

		KeyID:                                 m.ID,
		meeting.Namespace + "/timeNotes":      m.TimeNotes,
		meeting.Namespace + "/agency":         agency.Name,
		meeting.Namespace + "/classification": string(m.Classification),
	}
}

// jsLinks maps link URLs to link objects and adds the meeting source.
func jsLinks(m *meeting.Meeting) map[string]interface{} {
	links := make(map[string]interface{}, len(m.Links)+1)
	for _, link := range m.Links {
		links[link.Href] = map[string]interface{}{"href": link.Href, "title": link.Title}
	}
	links[meeting.Namespace+"/source"] = map[string]interface{}{
		"href":  m.Source,
		"title": "Source",
	}
	return links
}

func jsLocations(loc meeting.Location) map[string]interface{} {
	location := map[string]interface{}{"name": loc.Name}
	if loc.Address != "" {
		location[meeting.Namespace+"/address"] = loc.Address
	}
	return map[string]interface{}{"location": location}
}

// Duration formats the time between start and end as an ISO 8601 duration, e.g. "P1DT2H3M".
// Seconds are dropped. Negative spans format as "P".
func Duration(start, end time.Time) string {
	diff := end.Sub(start)
	if diff < 0 {
		diff = 0
	}
	days := int(diff / (24 * time.Hour))
	seconds := int((diff % (24 * time.Hour)) / time.Second)

	dur := "P"
	if days > 0 {
		dur += fmt.Sprintf("%dD", days)
	}
	if seconds > 0 {
		dur += "T"
	}
	if seconds >= 3600 {
		dur += fmt.Sprintf("%dH", seconds/3600)
	}
	if minutes := (seconds / 60) % 60; minutes > 0 {
		dur += fmt.Sprintf("%dM", minutes)
	}
	return dur
}
