// Package worker provides background job processing for cargowatch.
package worker

import "time"

// RefreshConfig holds configuration for the watch refresh job.
type RefreshConfig struct {
	// Concurrency is the number of concurrent assessments.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each assessment.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
