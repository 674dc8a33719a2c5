package retry

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExponentialBackoff builds the backoff schedule of policy. A zero
// MaxElapsedTime leaves the schedule bounded only by MaxAttempts.
func ExponentialBackoff(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.MaxElapsedTime = policy.MaxElapsedTime
	return exp
}

func newBackOff(ctx context.Context, policy Policy) backoff.BackOff {
	b := backoff.WithContext(ExponentialBackoff(policy), ctx)
	return backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))
}

// CalculateBackoffDuration is the nominal delay after attempt, ignoring
// jitter. It is reported to retry callbacks.
func CalculateBackoffDuration(attempt int, policy Policy) time.Duration {
	duration := float64(policy.InitialInterval) * math.Pow(policy.Multiplier, float64(attempt-1))
	if duration > float64(policy.MaxInterval) {
		return policy.MaxInterval
	}
	return time.Duration(duration)
}
