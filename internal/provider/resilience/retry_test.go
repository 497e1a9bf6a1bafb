package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/provider/resilience"
)

func fastPolicy(attempts uint64) resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := resilience.Retry(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := resilience.Retry(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := resilience.Retry(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, resilience.Permanent(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetry_AttemptTimeout(t *testing.T) {
	policy := fastPolicy(2)
	policy.AttemptTimeout = 20 * time.Millisecond

	calls := 0
	_, err := resilience.Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := resilience.Retry(ctx, fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestNoRetry(t *testing.T) {
	calls := 0
	_, err := resilience.Retry(context.Background(), resilience.NoRetry(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
