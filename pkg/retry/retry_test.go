package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return NewFatalError(errors.New("bad input"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(2), func() error {
		calls++
		return errors.New("down")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryWithCallback_ReportsAttempts(t *testing.T) {
	var attempts []int
	_ = RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		return errors.New("down")
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateBackoffDuration(t *testing.T) {
	policy := Policy{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, CalculateBackoffDuration(1, policy))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoffDuration(3, policy))
	assert.Equal(t, time.Second, CalculateBackoffDuration(10, policy))
}

func TestExponentialBackoff(t *testing.T) {
	policy := Policy{InitialInterval: 50 * time.Millisecond, MaxInterval: time.Second, Multiplier: 3, MaxElapsedTime: 5 * time.Second}

	b, ok := ExponentialBackoff(policy).(*backoff.ExponentialBackOff)

	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, b.InitialInterval)
	assert.Equal(t, time.Second, b.MaxInterval)
	assert.Equal(t, 3.0, b.Multiplier)
	assert.Equal(t, 5*time.Second, b.MaxElapsedTime)
}
