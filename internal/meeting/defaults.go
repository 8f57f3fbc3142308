package meeting

import "time"

// DefaultDuration is applied when a meeting has no usable end time.
const DefaultDuration = 2 * time.Hour

// ApplyDefaults fills the optional fields a spider left empty.
func ApplyDefaults(m *Meeting) {
	if m.Links == nil {
		m.Links = []Link{}
	}
	if m.Classification == "" {
		m.Classification = NotClassified
	}
	if m.Status == "" {
		m.Status = StatusTentative
	}
}

// Normalize cleans the title and sets a default end time two hours after the start when
// the end is missing or less than a minute after the start.
func Normalize(m *Meeting) {
	m.Title = CleanTitle(m.Title)
	if m.End.IsZero() || m.End.Sub(m.Start) < time.Minute {
		m.End = m.Start.Add(DefaultDuration)
	}
}
