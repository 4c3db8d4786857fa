package types

import "time"

const (
	// DefaultMaxAttempts is the retry limit applied when a node carries no
	// retry configuration.
	DefaultMaxAttempts = 3

	// DefaultBackoff is the initial delay before the first retry.
	DefaultBackoff = 100 * time.Millisecond

	// DefaultBackoffMultiplier doubles the delay on each further retry.
	DefaultBackoffMultiplier = 2.0
)

// RetryConfig governs per-node failure retry.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts"`

	// Backoff is the delay before the first retry.
	Backoff time.Duration `json:"backoff"`

	// BackoffMultiplier scales the delay on each subsequent retry.
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// RetryOn, when set, is consulted before retrying. Returning false
	// stops retrying immediately regardless of remaining attempts.
	RetryOn func(error) bool `json:"-"`
}

// NewRetryConfig creates a retry configuration with the engine defaults.
func NewRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		Backoff:           DefaultBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// WithMaxAttempts sets the total attempt limit.
func (c *RetryConfig) WithMaxAttempts(attempts int) *RetryConfig {
	c.MaxAttempts = attempts
	return c
}

// WithBackoff sets the initial retry delay.
func (c *RetryConfig) WithBackoff(d time.Duration) *RetryConfig {
	c.Backoff = d
	return c
}

// WithBackoffMultiplier sets the exponential backoff multiplier.
func (c *RetryConfig) WithBackoffMultiplier(m float64) *RetryConfig {
	c.BackoffMultiplier = m
	return c
}

// WithRetryOn sets the retryability predicate.
func (c *RetryConfig) WithRetryOn(fn func(error) bool) *RetryConfig {
	c.RetryOn = fn
	return c
}

// Attempts returns the effective attempt limit.
func (c *RetryConfig) Attempts() int {
	if c == nil || c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

// Delay computes the backoff before retrying after the given 1-based
// attempt: Backoff * BackoffMultiplier^(attempt-1).
func (c *RetryConfig) Delay(attempt int) time.Duration {
	backoff := DefaultBackoff
	multiplier := DefaultBackoffMultiplier
	if c != nil {
		if c.Backoff > 0 {
			backoff = c.Backoff
		}
		if c.BackoffMultiplier > 0 {
			multiplier = c.BackoffMultiplier
		}
	}

	delay := float64(backoff)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether the error is retryable under this config.
func (c *RetryConfig) ShouldRetry(err error) bool {
	if c == nil || c.RetryOn == nil {
		return true
	}
	return c.RetryOn(err)
}
