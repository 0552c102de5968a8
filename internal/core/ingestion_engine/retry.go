package ingestion_engine

import (
	"context"
	"time"
)

// RetryPolicy retries a failing operation a bounded number of times with a
// configurable delay schedule. Shared by the embedding call and the
// vector-store write so the control flow lives in one place.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration

	// OnRetry fires after a failed attempt that will be retried,
	// before the backoff sleep. Optional.
	OnRetry func(attempt int, err error)
}

// ExponentialBackoff waits 2^attempt seconds, attempt starting at 1.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Do runs op until it succeeds or MaxAttempts is reached, sleeping
// Backoff(attempt) between attempts. The sleep honors ctx, so one
// document's backoff never blocks another document's pipeline and
// cancellation interrupts the wait. Returns nil on success, ctx.Err() when
// cancelled mid-wait, otherwise the last operation error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if werr := sleepCtx(ctx, p.Backoff(attempt)); werr != nil {
			return werr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
