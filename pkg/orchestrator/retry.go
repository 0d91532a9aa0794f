package orchestrator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls retries of retryable failures against one provider.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts per provider, including
	// the first one.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Jitter is the randomization factor applied to each delay (0.0 - 1.0).
	Jitter float64
}

// DefaultRetryPolicy returns three attempts with 100ms to 2s of backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// attempts returns the attempt budget, honoring a positive per-provider
// override.
func (p RetryPolicy) attempts(override int) int {
	if override > 0 {
		return override
	}
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// newBackOff returns a fresh exponential schedule for one provider.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialBackoff,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxBackoff,
	}
	b.Reset()
	return b
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
