package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const defaultValidationThreshold = 0.9

// OutputConfig selects the serialized record shape.
type OutputConfig struct {
	// Format is "jscalendar" or "ocd"
	Format string `mapstructure:"format"`
}

// DiffConfig toggles cross-run reconciliation.
type DiffConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ValidationConfig controls the optional schema validation stage.
type ValidationConfig struct {
	// Enforce fails the run when any field is valid in fewer than Threshold of items
	Enforce   bool    `mapstructure:"enforce"`
	Threshold float64 `mapstructure:"threshold"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NewOutputConfig returns an output configuration with no format selected.
func NewOutputConfig() *OutputConfig {
	return &OutputConfig{}
}

// NewDiffConfig enables diffing by default.
func NewDiffConfig() *DiffConfig {
	return &DiffConfig{Enabled: true}
}

// NewValidationConfig returns validation defaults.
func NewValidationConfig() *ValidationConfig {
	return &ValidationConfig{Threshold: defaultValidationThreshold}
}

// NewLogConfig returns logging defaults.
func NewLogConfig() *LogConfig {
	return &LogConfig{Level: "info"}
}

func LoadOutputFromViper(v *viper.Viper) *OutputConfig {
	cfg := NewOutputConfig()
	if v.IsSet("output.format") {
		cfg.Format = normalizeFormat(v.GetString("output.format"))
	}
	return cfg
}

func LoadDiffFromViper(v *viper.Viper) *DiffConfig {
	cfg := NewDiffConfig()
	if v.IsSet("diff.enabled") {
		cfg.Enabled = v.GetBool("diff.enabled")
	}
	return cfg
}

func LoadValidationFromViper(v *viper.Viper) *ValidationConfig {
	cfg := NewValidationConfig()
	if v.IsSet("validation.enforce") {
		cfg.Enforce = v.GetBool("validation.enforce")
	}
	if v.IsSet("validation.threshold") {
		cfg.Threshold = v.GetFloat64("validation.threshold")
	}
	return cfg
}

func LoadLogFromViper(v *viper.Viper) *LogConfig {
	cfg := NewLogConfig()
	if v.IsSet("log.level") {
		cfg.Level = v.GetString("log.level")
	}
	if v.IsSet("log.development") {
		cfg.Development = v.GetBool("log.development")
	}
	return cfg
}

func normalizeFormat(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate returns ErrNoOutputFormat when no format is selected. Format is
// folded to lower case.
func (c *OutputConfig) Validate() error {
	c.Format = normalizeFormat(c.Format)
	switch c.Format {
	case "":
		return ErrNoOutputFormat
	case "jscalendar", "ocd":
		return nil
	}
	return fmt.Errorf("unknown format %q", c.Format)
}

// Validate checks the threshold range.
func (c *ValidationConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.New("threshold must be between 0 and 1")
	}
	return nil
}
