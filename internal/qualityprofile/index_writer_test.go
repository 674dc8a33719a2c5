package qualityprofile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qprofile/internal/logger"
	"qprofile/pkg/circuitbreaker"
	"qprofile/pkg/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  time.Second,
	}
}

func TestResilientIndexWriter_RetriesTransientFailures(t *testing.T) {
	next := &mockIndexWriter{}
	changes := sampleChanges()
	next.On("Index", mock.Anything, changes).Return(errors.New("timeout")).Twice()
	next.On("Index", mock.Anything, changes).Return(nil).Once()

	w := NewResilientIndexWriter(next, nil, fastPolicy(5), logger.NopLogger())
	require.NoError(t, w.Index(context.Background(), changes))

	next.AssertNumberOfCalls(t, "Index", 3)
}

func TestResilientIndexWriter_GivesUp(t *testing.T) {
	next := &mockIndexWriter{}
	changes := sampleChanges()
	next.On("Index", mock.Anything, changes).Return(errors.New("timeout"))

	w := NewResilientIndexWriter(next, nil, fastPolicy(3), logger.NopLogger())
	assert.Error(t, w.Index(context.Background(), changes))

	next.AssertNumberOfCalls(t, "Index", 3)
}

func TestResilientIndexWriter_OpenBreakerStopsRetries(t *testing.T) {
	next := &mockIndexWriter{}
	changes := sampleChanges()
	next.On("Index", mock.Anything, changes).Return(errors.New("connection refused"))

	cfg := circuitbreaker.DefaultConfig("index-test")
	cfg.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 }
	breaker := circuitbreaker.NewWrapper(cfg)

	w := NewResilientIndexWriter(next, breaker, fastPolicy(5), logger.NopLogger())
	err := w.Index(context.Background(), changes)

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, breaker.IsOpen())
	next.AssertNumberOfCalls(t, "Index", 1)
}

func TestResilientIndexWriter_IgnoresCallerCancellation(t *testing.T) {
	index := NewMemoryActiveRuleIndex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewResilientIndexWriter(index, nil, fastPolicy(1), logger.NopLogger())
	require.NoError(t, w.Index(ctx, sampleChanges()))

	found, err := index.Search(context.Background(), IndexQuery{ProfileKey: strictKey})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestResilientIndexWriter_EmptyChangeSet(t *testing.T) {
	next := &mockIndexWriter{}
	w := NewResilientIndexWriter(next, nil, fastPolicy(1), logger.NopLogger())

	require.NoError(t, w.Index(context.Background(), ChangeSet{}))
	next.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}
