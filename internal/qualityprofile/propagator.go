package qualityprofile

import (
	"context"
	"time"

	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
	"qprofile/pkg/logging"
	"qprofile/pkg/metrics"
)

// Propagator pushes committed change sets to the index and then announces
// them. It must only ever be called after a successful commit.
type Propagator struct {
	indexer  IndexWriter
	notifier ChangeNotifier
	logger   logger.Logger
}

func NewPropagator(indexer IndexWriter, notifier ChangeNotifier, log logger.Logger) *Propagator {
	return &Propagator{indexer: indexer, notifier: notifier, logger: log}
}

// Propagate returns ErrIndexPropagation when the index write fails. The
// mutation itself stays committed.
func (p *Propagator) Propagate(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	start := time.Now()
	err := p.indexer.Index(ctx, changes)
	metrics.ObserveIndexPropagationDuration(time.Since(start))

	if err != nil {
		metrics.IncIndexPropagation("failure")
		p.logger.ErrorwCtx(ctx, "Index propagation failed, index is stale",
			"changes", len(changes),
			"profiles", changes.ProfileKeys(),
			"error", err,
		)
		return pkgerrors.ErrIndexPropagation.WithCause(err)
	}
	metrics.IncIndexPropagation("success")

	if p.notifier != nil {
		if err := p.notifier.NotifyChanges(ctx, changes, logging.GetUserLogin(ctx)); err != nil {
			p.logger.WarnwCtx(ctx, "Failed to publish change notification",
				"changes", len(changes),
				"error", err,
			)
		}
	}

	return nil
}

// Result propagates changes and wraps the outcome.
func (p *Propagator) Result(ctx context.Context, changes ChangeSet) *MutationResult {
	if changes == nil {
		changes = ChangeSet{}
	}
	result := &MutationResult{Changes: changes}
	if err := p.Propagate(ctx, changes); err != nil {
		result.IndexStale = true
		result.IndexError = err
	}
	return result
}
