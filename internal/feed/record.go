package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// Shape selects the serialized format of a record.
type Shape string

const (
	ShapeJSCalendar Shape = "jscalendar"
	ShapeOCD        Shape = "ocd"
)

// ParseShape validates a configured output format name.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeJSCalendar:
		return ShapeJSCalendar, nil
	case ShapeOCD:
		return ShapeOCD, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// Record keys shared by both shapes.
const (
	KeyStatus = "status"
	KeyID     = meeting.Namespace + "/id"
	keyExtra  = "extra"
)

// PersistentIDKey is the key holding the persistent ID assigned by the output layer.
func (s Shape) PersistentIDKey() string {
	if s == ShapeOCD {
		return "_id"
	}
	return "uid"
}

// StartKey is the key holding the meeting start time.
func (s Shape) StartKey() string {
	if s == ShapeOCD {
		return "start_time"
	}
	return "start"
}

// ErrMissingField is returned when a record lacks a field its shape requires.
var ErrMissingField = errors.New("record missing field")

// Record is one serialized meeting.
type Record map[string]interface{}

// ScraperID returns the deterministic scraper ID stored in the record.
func (r Record) ScraperID(shape Shape) (string, bool) {
	if shape == ShapeOCD {
		extra, ok := r[keyExtra].(map[string]interface{})
		if !ok {
			return "", false
		}
		return nonEmptyString(extra[KeyID])
	}
	return nonEmptyString(r[KeyID])
}

// PersistentID returns the persistent ID, or "" if the record has none.
func (r Record) PersistentID(shape Shape) string {
	id, _ := nonEmptyString(r[shape.PersistentIDKey()])
	return id
}

// StartText returns the raw start value.
func (r Record) StartText(shape Shape) string {
	s, _ := r[shape.StartKey()].(string)
	return s
}

// Start parses the start time. Values with an offset are parsed as RFC 3339; naive local
// values are interpreted in loc.
func (r Record) Start(shape Shape, loc *time.Location) (time.Time, error) {
	raw := r.StartText(shape)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingField, shape.StartKey())
	}
	return ParseTime(raw, loc)
}

// Status returns the record's status value.
func (r Record) Status() meeting.Status {
	s, _ := r[KeyStatus].(string)
	return meeting.Status(s)
}

// WithStatus returns a shallow copy of the record with status replaced.
func (r Record) WithStatus(status meeting.Status) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	out[KeyStatus] = string(status)
	return out
}

// LocalLayout is the naive local timestamp layout used by JSCalendar records.
const LocalLayout = "2006-01-02T15:04:05"

// OffsetLayout is RFC 3339 with seconds precision and an explicit numeric offset.
const OffsetLayout = "2006-01-02T15:04:05-07:00"

// ParseTime parses a record timestamp with or without an offset.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(raw) > len(LocalLayout) {
		raw = raw[:len(LocalLayout)]
	}
	t, err := time.ParseInLocation(LocalLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", raw, err)
	}
	return t, nil
}

func nonEmptyString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
