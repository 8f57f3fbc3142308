package meeting

import (
	"regexp"
	"strings"
	"time"
)

var (
	cancelledPattern = regexp.MustCompile(`(?i)([\s:-]{1,3})?(cancel\w+|rescheduled)([\s:-]{1,3})?`)
	nonWordPattern   = regexp.MustCompile(`[^A-Za-z0-9^]+`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// CleanTitle removes "cancelled" and "rescheduled" markers from a title.
func CleanTitle(title string) string {
	return strings.TrimSpace(cancelledPattern.ReplaceAllString(title, ""))
}

// GenerateID creates the deterministic scraper ID for a meeting.
//
// Format: spider/YYYYMMDDHHMM/identifier/underscore_title. The identifier defaults to "x"
// and the title is cleaned before being lowercased and joined with underscores.
func GenerateID(spider string, m *Meeting, identifier string) string {
	underscoreTitle := strings.ToLower(
		spacePattern.ReplaceAllString(nonWordPattern.ReplaceAllString(CleanTitle(m.Title), " "), "_"),
	)
	if identifier == "" {
		identifier = "x"
	}
	identifier = strings.ReplaceAll(identifier, "/", "-")
	start := m.Start.Format("200601021504")
	return strings.Join([]string{spider, start, identifier, underscoreTitle}, "/")
}

// StatusFor derives a status from the meeting text and start time. Mentions of
// cancellation or postponement win over time; meetings that already started are passed.
func StatusFor(m *Meeting, text string, now time.Time) Status {
	meetingText := strings.ToLower(strings.Join([]string{m.Title, m.Description, text}, " "))
	for _, word := range []string{"cancel", "rescheduled", "postpone"} {
		if strings.Contains(meetingText, word) {
			return StatusCancelled
		}
	}
	if m.Start.Before(now) {
		return StatusPassed
	}
	return StatusTentative
}

// IsUpcoming reports whether the meeting starts at or after now.
func (m *Meeting) IsUpcoming(now time.Time) bool {
	return !m.Start.Before(now)
}
