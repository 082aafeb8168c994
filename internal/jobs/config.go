package jobs

import (
	"context"
	"fmt"
	"time"
)

// Default retry policy applied when a job sets no options
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 60 * time.Second
)

// WorkFunc is a unit of asynchronous work. The context carries the
// per-attempt deadline.
type WorkFunc func(ctx context.Context) error

// JobConfig is the retry and timeout policy for one job
type JobConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultJobConfig returns {3 retries, 1s delay, 60s timeout}
func DefaultJobConfig() JobConfig {
	return JobConfig{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
	}
}

// Validate checks the policy bounds
func (c JobConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidJobConfig, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be >= 0, got %s", ErrInvalidJobConfig, c.RetryDelay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0, got %s", ErrInvalidJobConfig, c.Timeout)
	}
	return nil
}

// Option overrides one field of a JobConfig
type Option func(*JobConfig)

// WithMaxRetries sets the number of retries after the first attempt
func WithMaxRetries(n int) Option {
	return func(c *JobConfig) { c.MaxRetries = n }
}

// WithRetryDelay sets the fixed wait between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *JobConfig) { c.RetryDelay = d }
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *JobConfig) { c.Timeout = d }
}

// WithConfig replaces every field at once
func WithConfig(cfg JobConfig) Option {
	return func(c *JobConfig) { *c = cfg }
}

// JobSpec names a unit of work and its policy overrides
type JobSpec struct {
	Name    string
	Work    WorkFunc
	Options []Option
}

func (c JobConfig) apply(opts []Option) JobConfig {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}
