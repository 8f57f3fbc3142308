package config

import (
	"errors"
	"fmt"
	"time"
)

// Spider kinds.
const (
	KindLegistar       = "legistar"
	KindEventsCalendar = "events_calendar"
)

const defaultTimezone = "America/Chicago"

// SpiderConfig defines one agency scraper.
type SpiderConfig struct {
	Name      string   `mapstructure:"name"`
	Agency    string   `mapstructure:"agency"`
	Timezone  string   `mapstructure:"timezone"`
	Kind      string   `mapstructure:"kind"`
	StartURLs []string `mapstructure:"start_urls"`
	// LinkTypes are extra Legistar columns to collect as links
	LinkTypes []string `mapstructure:"link_types"`
	// SinceYear is the first year requested from a Legistar calendar
	SinceYear int `mapstructure:"since_year"`
	// Classification applies to every meeting of a Legistar spider
	Classification string `mapstructure:"classification"`
	// Categories maps a classification to the events calendar category slugs that imply it
	Categories map[string][]string `mapstructure:"categories"`
}

func (s *SpiderConfig) applyDefaults() {
	if s.Timezone == "" {
		s.Timezone = defaultTimezone
	}
}

// Validate checks that the definition can build a spider.
func (s *SpiderConfig) Validate() error {
	if s.Name == "" {
		return errors.New("name required")
	}
	if s.Agency == "" {
		return fmt.Errorf("%s: agency required", s.Name)
	}
	if len(s.StartURLs) == 0 {
		return fmt.Errorf("%s: at least one start_url required", s.Name)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	switch s.Kind {
	case KindLegistar, KindEventsCalendar:
	default:
		return fmt.Errorf("%s: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}
