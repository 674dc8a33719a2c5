package qualityprofile

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/pkg/circuitbreaker"
	"qprofile/pkg/metrics"
	"qprofile/pkg/retry"
)

// ResilientIndexWriter retries index writes with backoff behind a circuit
// breaker. Retrying is safe because index writes are idempotent.
type ResilientIndexWriter struct {
	next    IndexWriter
	breaker *circuitbreaker.Wrapper
	policy  retry.Policy
	timeout time.Duration
	logger  logger.Logger
}

func NewResilientIndexWriter(next IndexWriter, breaker *circuitbreaker.Wrapper, policy retry.Policy, log logger.Logger) *ResilientIndexWriter {
	return &ResilientIndexWriter{
		next:    next,
		breaker: breaker,
		policy:  policy,
		timeout: constants.IndexTimeout,
		logger:  log,
	}
}

// Index runs detached from the caller's cancellation: the change set is
// already committed and must be written even if the request goes away.
func (w *ResilientIndexWriter) Index(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	return retry.RetryWithCallback(ctx, w.policy, func() error {
		return w.attempt(ctx, changes)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt("index")
		w.logger.WarnwCtx(ctx, "Index write failed, retrying",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
}

func (w *ResilientIndexWriter) attempt(ctx context.Context, changes ChangeSet) error {
	if w.breaker == nil {
		return w.next.Index(ctx, changes)
	}

	_, err := w.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, w.next.Index(ctx, changes)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.NewFatalError(err)
	}
	return err
}
