package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes how a provider call is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first one.
	// Default: 3
	MaxAttempts uint64

	// InitialInterval is the backoff before the second attempt.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff between attempts.
	// Default: 2 seconds
	MaxInterval time.Duration

	// Multiplier grows the interval after each attempt.
	// Default: 2
	Multiplier float64

	// AttemptTimeout bounds each individual attempt. Zero disables it.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used for condition providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		AttemptTimeout:  800 * time.Millisecond,
	}
}

// NoRetry returns a policy that performs a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.InitialInterval == 0 {
		p.InitialInterval = 100 * time.Millisecond
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = 2 * time.Second
	}
	if p.Multiplier == 0 {
		p.Multiplier = 2
	}
	return p
}

// backOff builds the exponential backoff for this policy bound to ctx.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = p.Multiplier
	bo.MaxElapsedTime = 0 // attempts are bounded by WithMaxRetries

	return backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx)
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a permanent error, or the policy is exhausted.
// The last error is returned unwrapped from any permanent marker.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		if policy.AttemptTimeout <= 0 {
			return op(ctx)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()
		return op(attemptCtx)
	}

	result, err := backoff.RetryWithData(attempt, policy.backOff(ctx))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return result, perm.Err
		}
		return result, err
	}
	return result, nil
}
