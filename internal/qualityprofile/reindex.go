package qualityprofile

import (
	"context"

	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

// ProfileIndex is an index that can drop all documents of one profile.
type ProfileIndex interface {
	IndexWriter
	DeleteProfile(ctx context.Context, profileKey string) (int64, error)
}

// Reindexer rebuilds index documents from the system of record. It is the
// remedy for a profile whose index went stale.
type Reindexer struct {
	store  Store
	index  ProfileIndex
	logger logger.Logger
}

func NewReindexer(store Store, index ProfileIndex, log logger.Logger) *Reindexer {
	return &Reindexer{store: store, index: index, logger: log}
}

// ReindexProfile returns the number of active rules written to the index. A
// profile that no longer exists only has its leftover documents removed.
func (r *Reindexer) ReindexProfile(ctx context.Context, profileKey string) (int, error) {
	changes, found, err := r.snapshot(ctx, profileKey)
	if err != nil {
		return 0, err
	}

	removed, err := r.index.DeleteProfile(ctx, profileKey)
	if err != nil {
		return 0, pkgerrors.ErrIndexPropagation.WithCause(err)
	}
	if !found {
		r.logger.InfowCtx(ctx, "Index documents of deleted profile removed",
			"profile_key", profileKey,
			"removed", removed,
		)
		return 0, nil
	}
	if err := r.index.Index(ctx, changes); err != nil {
		return 0, pkgerrors.ErrIndexPropagation.WithCause(err)
	}

	r.logger.InfowCtx(ctx, "Profile reindexed",
		"profile_key", profileKey,
		"removed", removed,
		"indexed", len(changes),
	)
	return len(changes), nil
}

func (r *Reindexer) snapshot(ctx context.Context, profileKey string) (ChangeSet, bool, error) {
	sess, err := r.store.OpenSession(ctx)
	if err != nil {
		return nil, false, err
	}
	defer sess.Close()

	profile, err := sess.Profiles().Get(ctx, profileKey)
	if err != nil {
		return nil, false, err
	}
	if profile == nil {
		return nil, false, nil
	}

	activeRules, err := sess.ActiveRules().ListByProfile(ctx, profileKey)
	if err != nil {
		return nil, false, err
	}
	changes := make(ChangeSet, 0, len(activeRules))
	for _, ar := range activeRules {
		changes = append(changes, NewActivatedChange(ar))
	}
	return changes, true, nil
}
