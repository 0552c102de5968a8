package ingestion_engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_DoublesPerAttempt(t *testing.T) {
	require.Equal(t, 2*time.Second, ExponentialBackoff(1))
	require.Equal(t, 4*time.Second, ExponentialBackoff(2))
	require.Equal(t, 8*time.Second, ExponentialBackoff(3))
	require.Equal(t, 16*time.Second, ExponentialBackoff(4))
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 5,
		Backoff: func(attempt int) time.Duration {
			delays = append(delays, ExponentialBackoff(attempt))
			return 0
		},
	}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	retries := 0
	policy := RetryPolicy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return 0 },
		OnRetry:     func(int, error) { retries++ },
	}

	boom := errors.New("boom")
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 5, calls)
	require.Equal(t, 4, retries)
}

func TestRetryPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Hour },
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
