package scheduler

import "time"

// Config controls the monthly sweep cadence and its worker pool.
type Config struct {
	RunInterval time.Duration
	Workers     int
	UserTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		Workers:     4,
		UserTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.UserTimeout <= 0 {
		c.UserTimeout = defaults.UserTimeout
	}
	return c
}
