// Package config defines service configuration and its loader.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Defaults applied by New and by normalization of invalid values.
const (
	DefaultVideoRetentionHours = 24
	DefaultMaxVideoSizeMB      = 200
	DefaultBatchLimit          = 10
	DefaultPurgeLimit          = 100
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	DatabaseDriver string `koanf:"database_driver"`
	DatabaseDSN    string `koanf:"database_dsn"`

	// StorageProvider selects the video store: local, s3 or gcs.
	StorageProvider    string `koanf:"storage_provider"`
	LocalStorageDir    string `koanf:"local_storage_dir"`
	S3Bucket           string `koanf:"s3_bucket"`
	S3AccessKeyID      string `koanf:"s3_access_key_id"`
	S3SecretAccessKey  string `koanf:"s3_secret_access_key"`
	S3Region           string `koanf:"s3_region"`
	S3Endpoint         string `koanf:"s3_endpoint"`
	S3ForcePathStyle   bool   `koanf:"s3_force_path_style"`
	GCSBucket          string `koanf:"gcs_bucket"`
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`

	// VideoRetentionHours is how long stored videos live; non-positive falls back to 24.
	VideoRetentionHours      int  `koanf:"video_retention_hours"`
	MaxVideoSizeMB           int  `koanf:"max_video_size_mb"`
	KeepFailedVideosForDebug bool `koanf:"keep_failed_videos_for_debug"`

	// WorkerCount bounds concurrent processing within one batch. 1 is sequential.
	WorkerCount          int `koanf:"worker_count"`
	BatchLimit           int `koanf:"batch_limit"`
	BatchIntervalSeconds int `koanf:"batch_interval_seconds"`
	PurgeLimit           int `koanf:"purge_limit"`
	ItemTimeoutSeconds   int `koanf:"item_timeout_seconds"`

	// ClaimBackend is memory or redis.
	ClaimBackend     string `koanf:"claim_backend"`
	RedisAddr        string `koanf:"redis_addr"`
	ClaimTTLSeconds  int    `koanf:"claim_ttl_seconds"`
	StatsIntervalSec int    `koanf:"stats_interval_seconds"`

	TracingEnabled     bool    `koanf:"tracing_enabled"`
	OTLPEndpoint       string  `koanf:"otlp_endpoint"`
	OTLPInsecure       bool    `koanf:"otlp_insecure"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		DatabaseDriver:       "sqlite",
		DatabaseDSN:          "file:athlemetry.db?_pragma=busy_timeout(5000)",
		StorageProvider:      "local",
		LocalStorageDir:      "uploads",
		S3Region:             "auto",
		VideoRetentionHours:  DefaultVideoRetentionHours,
		MaxVideoSizeMB:       DefaultMaxVideoSizeMB,
		WorkerCount:          1,
		BatchLimit:           DefaultBatchLimit,
		BatchIntervalSeconds: 30,
		PurgeLimit:           DefaultPurgeLimit,
		ItemTimeoutSeconds:   120,
		ClaimBackend:         "memory",
		ClaimTTLSeconds:      600,
		StatsIntervalSec:     15,
	}
}

// Normalize replaces out-of-range numeric values with their defaults.
func (c *Config) Normalize() {
	if c.VideoRetentionHours <= 0 {
		c.VideoRetentionHours = DefaultVideoRetentionHours
	}
	if c.MaxVideoSizeMB <= 0 {
		c.MaxVideoSizeMB = DefaultMaxVideoSizeMB
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = DefaultBatchLimit
	}
	if c.PurgeLimit <= 0 {
		c.PurgeLimit = DefaultPurgeLimit
	}
	if c.S3Region == "" {
		c.S3Region = "auto"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !slices.Contains([]string{"postgres", "sqlite"}, c.DatabaseDriver) {
		return fmt.Errorf("%w: unknown database_driver %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	if !slices.Contains([]string{"", "local", "s3", "gcs"}, c.StorageProvider) {
		return fmt.Errorf("%w: unknown storage_provider %q", ErrInvalidConfig, c.StorageProvider)
	}
	switch c.ClaimBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis claim backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown claim_backend %q", ErrInvalidConfig, c.ClaimBackend)
	}
	return nil
}

// MaxVideoBytes is the upload size limit in bytes.
func (c *Config) MaxVideoBytes() int64 { return int64(c.MaxVideoSizeMB) * 1024 * 1024 }

// BatchInterval is the scheduler period; zero disables the scheduler.
func (c *Config) BatchInterval() time.Duration {
	if c.BatchIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.BatchIntervalSeconds) * time.Second
}

// ItemTimeout is the per-submission processing deadline; zero means none.
func (c *Config) ItemTimeout() time.Duration {
	if c.ItemTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ItemTimeoutSeconds) * time.Second
}

// ClaimTTL is the lease of a redis claim.
func (c *Config) ClaimTTL() time.Duration {
	return time.Duration(c.ClaimTTLSeconds) * time.Second
}

// StatsInterval is how often status gauges are refreshed.
func (c *Config) StatsInterval() time.Duration {
	if c.StatsIntervalSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.StatsIntervalSec) * time.Second
}
