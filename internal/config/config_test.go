package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
output:
  format: ocd
storage:
  provider: s3
  max_days_previous: 5
  s3:
    endpoint: minio:9000
    bucket: city-scrapers-feeds
    use_ssl: false
validation:
  enforce: true
spiders:
  - name: chi_board_elections
    agency: Chicago Board of Elections
    kind: legistar
    start_urls: ["https://chicago.legistar.com/Calendar.aspx"]
    since_year: 2024
    link_types: ["Notice"]
  - name: chi_ssa_1
    agency: Chicago Special Service Area 1
    timezone: America/New_York
    kind: events_calendar
    start_urls: ["https://example.org/wp-json/tribe/events/v1/events"]
    categories:
      Commission: ["commission-meeting"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "city-scrapers.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "ocd", cfg.Output.Format)
	assert.Equal(t, ProviderS3, cfg.Storage.Provider)
	assert.Equal(t, 5, cfg.Storage.MaxDaysPrevious)
	assert.Equal(t, "2006/01/02", cfg.Storage.FeedPrefix)
	assert.Equal(t, "minio:9000", cfg.Storage.S3.Endpoint)
	assert.False(t, cfg.Storage.S3.UseSSL)
	assert.True(t, cfg.Diff.Enabled)
	assert.True(t, cfg.Validation.Enforce)
	assert.InDelta(t, 0.9, cfg.Validation.Threshold, 1e-9)

	require.Len(t, cfg.Spiders, 2)
	assert.Equal(t, "America/Chicago", cfg.Spiders[0].Timezone)
	assert.Equal(t, 2024, cfg.Spiders[0].SinceYear)
	assert.Equal(t, []string{"Notice"}, cfg.Spiders[0].LinkTypes)
	assert.Equal(t, "America/New_York", cfg.Spiders[1].Timezone)
	assert.Equal(t, []string{"commission-meeting"}, cfg.Spiders[1].Categories["commission"])

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"chi_board_elections", "chi_ssa_1"}, cfg.SpiderNames())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CITY_SCRAPERS_OUTPUT_FORMAT", "jscalendar")
	t.Setenv("CITY_SCRAPERS_DIFF_ENABLED", "false")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "jscalendar", cfg.Output.Format)
	assert.False(t, cfg.Diff.Enabled)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_NoOutputFormat(t *testing.T) {
	cfg := NewConfig()

	err := cfg.Validate()
	assert.True(t, errors.Is(err, ErrNoOutputFormat), "got %v", err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.Output.Format = "jscalendar"
		cfg.Spiders = []SpiderConfig{{
			Name:      "chi_example",
			Agency:    "Example",
			Timezone:  "America/Chicago",
			Kind:      KindLegistar,
			StartURLs: []string{"https://example.legistar.com/Calendar.aspx"},
		}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"upper-case format", func(c *Config) { c.Output.Format = "OCD" }, false},
		{"padded format", func(c *Config) { c.Output.Format = " JSCalendar " }, false},
		{"blank format", func(c *Config) { c.Output.Format = "  " }, true},
		{"unknown format", func(c *Config) { c.Output.Format = "ical" }, true},
		{"unknown provider", func(c *Config) { c.Storage.Provider = "gcs" }, true},
		{"s3 without bucket", func(c *Config) { c.Storage.Provider = ProviderS3 }, true},
		{"threshold out of range", func(c *Config) { c.Validation.Threshold = 1.5 }, true},
		{"spider without start urls", func(c *Config) { c.Spiders[0].StartURLs = nil }, true},
		{"spider with bad kind", func(c *Config) { c.Spiders[0].Kind = "html" }, true},
		{"spider with bad timezone", func(c *Config) { c.Spiders[0].Timezone = "Mars/Olympus" }, true},
		{"duplicate spider", func(c *Config) { c.Spiders = append(c.Spiders, c.Spiders[0]) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputConfig_Normalize(t *testing.T) {
	v := viper.New()
	v.Set("output.format", " OCD ")
	cfg := LoadOutputFromViper(v)
	assert.Equal(t, "ocd", cfg.Format)

	out := &OutputConfig{Format: "JSCalendar"}
	require.NoError(t, out.Validate())
	assert.Equal(t, "jscalendar", out.Format)
}

func TestSpider(t *testing.T) {
	cfg := NewConfig()
	cfg.Spiders = []SpiderConfig{{Name: "a"}, {Name: "b"}}

	s, err := cfg.Spider("b")
	require.NoError(t, err)
	assert.Equal(t, "b", s.Name)

	_, err = cfg.Spider("c")
	assert.Error(t, err)
}
