// Package config loads city-scrapers configuration from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CITY_SCRAPERS_OUTPUT_FORMAT.
const EnvPrefix = "CITY_SCRAPERS"

// ErrNoOutputFormat is returned when no output format is configured. The diff
// engine cannot know which record shape to read without one.
var ErrNoOutputFormat = errors.New("no output format configured")

// Config is the aggregate application configuration.
type Config struct {
	Storage    *StorageConfig    `mapstructure:"storage"`
	Output     *OutputConfig     `mapstructure:"output"`
	Diff       *DiffConfig       `mapstructure:"diff"`
	Validation *ValidationConfig `mapstructure:"validation"`
	Log        *LogConfig        `mapstructure:"log"`
	Spiders    []SpiderConfig    `mapstructure:"spiders"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Storage:    NewStorageConfig(),
		Output:     NewOutputConfig(),
		Diff:       NewDiffConfig(),
		Validation: NewValidationConfig(),
		Log:        NewLogConfig(),
	}
}

// Load reads configuration from path, or from the default search locations
// when path is empty. Only a missing explicit path is an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("city-scrapers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "city-scrapers"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already populated viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Storage:    LoadStorageFromViper(v),
		Output:     LoadOutputFromViper(v),
		Diff:       LoadDiffFromViper(v),
		Validation: LoadValidationFromViper(v),
		Log:        LoadLogFromViper(v),
	}

	if err := v.UnmarshalKey("spiders", &cfg.Spiders); err != nil {
		return nil, fmt.Errorf("decoding spiders: %w", err)
	}
	for i := range cfg.Spiders {
		cfg.Spiders[i].applyDefaults()
	}

	return cfg, nil
}

// Validate checks the configuration before any crawling starts.
func (c *Config) Validate() error {
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	seen := make(map[string]bool, len(c.Spiders))
	for i := range c.Spiders {
		s := &c.Spiders[i]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("spiders[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("spiders[%d]: duplicate spider name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Spider returns the spider definition with the given name.
func (c *Config) Spider(name string) (*SpiderConfig, error) {
	for i := range c.Spiders {
		if c.Spiders[i].Name == name {
			return &c.Spiders[i], nil
		}
	}
	return nil, fmt.Errorf("unknown spider: %s", name)
}

// SpiderNames lists the configured spider names in file order.
func (c *Config) SpiderNames() []string {
	names := make([]string, 0, len(c.Spiders))
	for _, s := range c.Spiders {
		names = append(names, s.Name)
	}
	return names
}
