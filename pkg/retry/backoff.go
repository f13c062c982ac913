// Package retry re-runs remote calls that fail with a transient error.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines how the wait between attempts grows.
type BackoffStrategy int

const (
	// BackoffExponential waits base * 2^(attempt-1).
	BackoffExponential BackoffStrategy = iota

	// BackoffLinear waits base * attempt.
	BackoffLinear

	// BackoffConstant always waits base.
	BackoffConstant
)

// BackoffConfig configures the wait between attempts.
type BackoffConfig struct {
	// Strategy is the backoff strategy to use.
	// Default is BackoffExponential.
	Strategy BackoffStrategy

	// BaseInterval is the wait after the first failure.
	BaseInterval time.Duration

	// MaxInterval caps a single wait.
	MaxInterval time.Duration

	// Jitter adds randomness, between 0.0 (none) and 1.0 (full).
	Jitter float64
}

// DefaultBackoffConfig returns the backoff used for API fetches.
func DefaultBackoffConfig() *BackoffConfig {
	return &BackoffConfig{
		Strategy:     BackoffExponential,
		BaseInterval: 500 * time.Millisecond,
		MaxInterval:  10 * time.Second,
		Jitter:       0.1,
	}
}

// Interval returns the wait before the attempt after the given number of
// failures.
func (c *BackoffConfig) Interval(failures int) time.Duration {
	return c.applyJitter(c.interval(failures))
}

func (c *BackoffConfig) interval(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}

	var interval time.Duration
	switch c.Strategy {
	case BackoffLinear:
		interval = c.BaseInterval * time.Duration(failures)
	case BackoffConstant:
		interval = c.BaseInterval
	default:
		multiplier := math.Pow(2, float64(failures-1))
		interval = time.Duration(float64(c.BaseInterval) * multiplier)
	}

	if c.MaxInterval > 0 && interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	return interval
}

func (c *BackoffConfig) applyJitter(interval time.Duration) time.Duration {
	if c.Jitter <= 0 {
		return interval
	}
	jitter := math.Min(c.Jitter, 1)

	// For jitter=0.1 the result lands in [0.9, 1.1] * interval.
	jitterRange := float64(interval) * jitter
	jitterValue := (rand.Float64()*2 - 1) * jitterRange
	return time.Duration(float64(interval) + jitterValue)
}

// Schedule returns the waits, without jitter, for the given number of
// failures. Useful for logging the expected worst case.
func (c *BackoffConfig) Schedule(failures int) []time.Duration {
	if failures <= 0 {
		return nil
	}
	schedule := make([]time.Duration, failures)
	for i := range failures {
		schedule[i] = c.interval(i + 1)
	}
	return schedule
}

// TotalBackoffTime sums Schedule.
func (c *BackoffConfig) TotalBackoffTime(failures int) time.Duration {
	var total time.Duration
	for _, d := range c.Schedule(failures) {
		total += d
	}
	return total
}
