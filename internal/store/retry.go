package store

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy decides how often and how patiently an operation is retried
// when the database reports a transient condition.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
	Retryable      func(error) bool
}

// DefaultRetryPolicy retries busy/locked errors four times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     2 * time.Second,
		Retryable:      IsContention,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Retryable == nil {
		p.Retryable = IsContention
	}
	return p
}

// Backoff returns the wait before the given retry (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	p = p.normalized()
	delay := float64(p.InitialBackoff)
	for i := 1; i < retry; i++ {
		delay *= p.Multiplier
	}
	d := time.Duration(delay)
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. onRetry is called before each wait. Exhaustion
// returns ErrContention wrapping the last error.
func (p RetryPolicy) Do(ctx context.Context, op func() error, onRetry func(attempt int, err error)) error {
	p = p.normalized()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrContention, p.MaxAttempts, lastErr)
}
