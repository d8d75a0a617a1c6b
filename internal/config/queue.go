package config

import (
	"fmt"
	"time"
)

const (
	EnvQueueInterval    = "CUSTODIAN_QUEUE_INTERVAL"
	EnvQueueBatchLimit  = "CUSTODIAN_QUEUE_BATCH_LIMIT"
	EnvQueueConcurrency = "CUSTODIAN_QUEUE_CONCURRENCY"
	EnvQueueMaxAttempts = "CUSTODIAN_QUEUE_MAX_ATTEMPTS"
)

// QueueConfig holds dispatch scheduling parameters for the
// classification queue.
type QueueConfig struct {
	Interval    string `toml:"interval"`
	BatchLimit  int    `toml:"batch_limit"`
	Concurrency int    `toml:"concurrency"`
	MaxAttempts int    `toml:"max_attempts"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *QueueConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *QueueConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *QueueConfig) Merge(overlay *QueueConfig) {
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.BatchLimit != 0 {
		c.BatchLimit = overlay.BatchLimit
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
}

func (c *QueueConfig) loadDefaults() {
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.BatchLimit == 0 {
		c.BatchLimit = 10
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
}

func (c *QueueConfig) loadEnv() {
	envString(EnvQueueInterval, &c.Interval)
	envInt(EnvQueueBatchLimit, &c.BatchLimit)
	envInt(EnvQueueConcurrency, &c.Concurrency)
	envInt(EnvQueueMaxAttempts, &c.MaxAttempts)
}

func (c *QueueConfig) validate() error {
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("batch_limit must be positive: %d", c.BatchLimit)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive: %d", c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive: %d", c.MaxAttempts)
	}
	return nil
}
