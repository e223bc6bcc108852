package config

import (
	"fmt"
	"time"

	redisclient "github.com/researchgate/crossref-snapshot-mount/internal/infra/redis"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Source   SourceConfig       `yaml:"source"`
	Target   TargetConfig       `yaml:"target"`
	Load     LoadConfig         `yaml:"load"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings. Port 0 disables the server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SourceConfig locates the snapshot objects in the blob store.
type SourceConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Suffix   string `yaml:"suffix"`   // e.g. ".jsonl.gz"
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // optional, for S3-compatible stores
}

// TargetConfig identifies the destination table and load options.
type TargetConfig struct {
	Project       string `yaml:"project"`
	Dataset       string `yaml:"dataset"`
	Table         string `yaml:"table"`
	SchemaFile    string `yaml:"schema_file"`     // optional; autodetect when empty
	MaxBadRecords int64  `yaml:"max_bad_records"` // per-job tolerance
}

// LoadConfig holds the throttling and batching limits.
type LoadConfig struct {
	SubmitDelay     time.Duration // delay before each job
	SettleDelay     time.Duration // delay after each batch
	BatchSize       int           // max items per batch
	RetryBatchSize  int           // batch size for retry passes
	MaxJobsPerRun   int           // daily job ceiling
	MaxListAttempts int
}

// UnmarshalYAML parses delays from duration strings ("10s", "2m").
func (c *LoadConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		SubmitDelay     string `yaml:"submit_delay"`
		SettleDelay     string `yaml:"settle_delay"`
		BatchSize       int    `yaml:"batch_size"`
		RetryBatchSize  int    `yaml:"retry_batch_size"`
		MaxJobsPerRun   int    `yaml:"max_jobs_per_run"`
		MaxListAttempts int    `yaml:"max_list_attempts"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.SubmitDelay != "" {
		d, err := time.ParseDuration(raw.SubmitDelay)
		if err != nil {
			return fmt.Errorf("invalid submit_delay: %w", err)
		}
		c.SubmitDelay = d
	}
	if raw.SettleDelay != "" {
		d, err := time.ParseDuration(raw.SettleDelay)
		if err != nil {
			return fmt.Errorf("invalid settle_delay: %w", err)
		}
		c.SettleDelay = d
	}

	c.BatchSize = raw.BatchSize
	c.RetryBatchSize = raw.RetryBatchSize
	c.MaxJobsPerRun = raw.MaxJobsPerRun
	c.MaxListAttempts = raw.MaxListAttempts
	return nil
}
