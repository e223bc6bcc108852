package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Load.SubmitDelay == 0 {
		cfg.Load.SubmitDelay = 10 * time.Second
	}
	if cfg.Load.BatchSize == 0 {
		cfg.Load.BatchSize = 1
	}
	if cfg.Load.RetryBatchSize == 0 {
		cfg.Load.RetryBatchSize = 50
	}
	if cfg.Load.MaxJobsPerRun == 0 {
		cfg.Load.MaxJobsPerRun = 1500
	}
	if cfg.Load.MaxListAttempts == 0 {
		cfg.Load.MaxListAttempts = 3
	}
	if cfg.Source.Suffix == "" {
		cfg.Source.Suffix = ".jsonl.gz"
	}

	return &cfg, nil
}
