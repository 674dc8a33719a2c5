package qualityprofile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

func TestReindexer_ReindexProfile(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityCritical)})
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleNaming})
	ctx := context.Background()

	// A stale document that no longer exists in the system of record.
	require.NoError(t, f.index.Index(ctx, ChangeSet{NewActivatedChange(ActiveRule{Key: NewActiveRuleKey(strictKey, ruleBroken), Severity: SeverityInfo})}))

	n, err := NewReindexer(f.store, f.index, logger.NopLogger()).ReindexProfile(ctx, strictKey)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	docs, err := f.index.Search(ctx, IndexQuery{ProfileKey: strictKey})
	require.NoError(t, err)
	assert.Equal(t, []RuleKey{ruleNaming, ruleLongMethod}, ruleKeys(docs))

	critical, err := f.index.Search(ctx, IndexQuery{ProfileKey: strictKey, Severity: Some(SeverityCritical)})
	require.NoError(t, err)
	assert.Equal(t, []RuleKey{ruleLongMethod}, ruleKeys(critical))
}

func TestReindexer_Errors(t *testing.T) {
	f := newFixture(t)
	r := NewReindexer(f.store, f.index, logger.NopLogger())

	f.index.FailWith(errors.New("index unavailable"))
	_, err := r.ReindexProfile(context.Background(), strictKey)
	assert.True(t, pkgerrors.IsIndexPropagation(err))
}

func TestReindexer_DeletedProfileDropsLeftoverDocuments(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})
	ctx := context.Background()

	// Delete commits but the index misses the deactivations.
	f.index.FailWith(errors.New("index unavailable"))
	res, err := f.service().Delete(ctx, adminUser(), strictKey)
	require.NoError(t, err)
	assert.True(t, res.IndexStale)
	f.index.FailWith(nil)

	docs, err := f.index.Search(ctx, IndexQuery{ProfileKey: strictKey})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	n, err := NewReindexer(f.store, f.index, logger.NopLogger()).ReindexProfile(ctx, strictKey)
	require.NoError(t, err)
	assert.Zero(t, n)

	docs, err = f.index.Search(ctx, IndexQuery{ProfileKey: strictKey})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
