package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Storage providers.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

const (
	defaultFeedPrefix      = "2006/01/02"
	defaultMaxDaysPrevious = 3
	defaultLocalDir        = "~/.local/share/city-scrapers"
)

// StorageConfig selects where feed batches are read from and written to.
type StorageConfig struct {
	// Provider is "local" or "s3"
	Provider string `mapstructure:"provider"`
	// FeedPrefix is a Go time layout producing the per-day key prefix
	FeedPrefix string `mapstructure:"feed_prefix"`
	// MaxDaysPrevious bounds the backward search for a previous batch
	MaxDaysPrevious int          `mapstructure:"max_days_previous"`
	Local           *LocalConfig `mapstructure:"local"`
	S3              *S3Config    `mapstructure:"s3"`
}

// LocalConfig configures the directory-backed store.
type LocalConfig struct {
	Dir string `mapstructure:"dir"`
}

// S3Config configures an S3-compatible object store.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// NewStorageConfig returns storage defaults: a local store under the user's data directory.
func NewStorageConfig() *StorageConfig {
	return &StorageConfig{
		Provider:        ProviderLocal,
		FeedPrefix:      defaultFeedPrefix,
		MaxDaysPrevious: defaultMaxDaysPrevious,
		Local:           &LocalConfig{Dir: defaultLocalDir},
		S3: &S3Config{
			Endpoint: "s3.amazonaws.com",
			UseSSL:   true,
		},
	}
}

// LoadStorageFromViper loads storage configuration, keeping defaults for unset keys.
func LoadStorageFromViper(v *viper.Viper) *StorageConfig {
	cfg := NewStorageConfig()

	if v.IsSet("storage.provider") {
		cfg.Provider = v.GetString("storage.provider")
	}
	if v.IsSet("storage.feed_prefix") {
		cfg.FeedPrefix = v.GetString("storage.feed_prefix")
	}
	if v.IsSet("storage.max_days_previous") {
		cfg.MaxDaysPrevious = v.GetInt("storage.max_days_previous")
	}
	if v.IsSet("storage.local.dir") {
		cfg.Local.Dir = v.GetString("storage.local.dir")
	}
	if v.IsSet("storage.s3.endpoint") {
		cfg.S3.Endpoint = v.GetString("storage.s3.endpoint")
	}
	if v.IsSet("storage.s3.access_key") {
		cfg.S3.AccessKey = v.GetString("storage.s3.access_key")
	}
	if v.IsSet("storage.s3.secret_key") {
		cfg.S3.SecretKey = v.GetString("storage.s3.secret_key")
	}
	if v.IsSet("storage.s3.use_ssl") {
		cfg.S3.UseSSL = v.GetBool("storage.s3.use_ssl")
	}
	if v.IsSet("storage.s3.bucket") {
		cfg.S3.Bucket = v.GetString("storage.s3.bucket")
	}
	if v.IsSet("storage.s3.region") {
		cfg.S3.Region = v.GetString("storage.s3.region")
	}

	return cfg
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.FeedPrefix == "" {
		return errors.New("feed_prefix required")
	}
	if c.MaxDaysPrevious < 0 {
		return errors.New("max_days_previous must be non-negative")
	}

	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil || c.Local.Dir == "" {
			return errors.New("local.dir required for local provider")
		}
	case ProviderS3:
		if c.S3 == nil || c.S3.Endpoint == "" {
			return errors.New("s3.endpoint required for s3 provider")
		}
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket required for s3 provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
