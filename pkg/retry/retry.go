package retry

import (
	"context"
	"time"

	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
)

// DefaultAttempts is the number of tries Do makes when Policy.Attempts is 0.
const DefaultAttempts = 3

// Policy says how often and how patiently to retry.
type Policy struct {
	// Attempts is the total number of tries, including the first. A negative
	// value disables retries.
	Attempts int

	Backoff *BackoffConfig

	// Retryable decides whether an error is worth another attempt.
	// Defaults to errors.IsRetryable.
	Retryable func(error) bool

	Logger core.Logger
}

func (p Policy) withDefaults() Policy {
	switch {
	case p.Attempts == 0:
		p.Attempts = DefaultAttempts
	case p.Attempts < 0:
		p.Attempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = DefaultBackoffConfig()
	}
	if p.Retryable == nil {
		p.Retryable = errors.IsRetryable
	}
	if p.Logger == nil {
		p.Logger = core.GetDefaultLogger()
	}
	return p
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is done. It returns fn's last error.
func Do(ctx context.Context, op string, p Policy, fn func(context.Context) error) error {
	p = p.withDefaults()

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.Attempts || !p.Retryable(err) || ctx.Err() != nil {
			return err
		}

		wait := p.Backoff.Interval(attempt)
		p.Logger.Debug("%s: attempt %d/%d failed, retrying in %v: %v", op, attempt, p.Attempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
