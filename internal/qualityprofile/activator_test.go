package qualityprofile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

func TestActivator_Activate_NewRule(t *testing.T) {
	f := newFixture(t)

	changes := f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeActivated, changes[0].Type)
	assert.Equal(t, NewActiveRuleKey(strictKey, ruleLongMethod), changes[0].Key)
	assert.Equal(t, Some(SeverityMajor), changes[0].Severity)
	assert.Equal(t, map[string]string{"max": "20"}, changes[0].Params)

	active := f.activeRules(t, strictKey)
	require.Len(t, active, 1)
	assert.Equal(t, SeverityMajor, active[0].Severity)
}

func TestActivator_Activate_Timestamps(t *testing.T) {
	f := newFixture(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	now := created
	f.activator = NewActivator(f.store, f.activator.selector, f.propagator, logger.NopLogger(),
		WithClock(func() time.Time { return now }))

	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})
	now = created.Add(time.Hour)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityBlocker)})

	active := f.activeRules(t, strictKey)
	require.Len(t, active, 1)
	assert.Equal(t, created.UTC(), active[0].CreatedAt)
	assert.Equal(t, created.Add(time.Hour).UTC(), active[0].UpdatedAt)
	assert.Equal(t, time.UTC, active[0].UpdatedAt.Location())
}

func TestActivator_Activate_UpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})

	changes := f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityBlocker)})

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Type)
	assert.Equal(t, Some(SeverityBlocker), changes[0].Severity)

	active := f.activeRules(t, strictKey)
	require.Len(t, active, 1)
	assert.Equal(t, SeverityBlocker, active[0].Severity)
}

func TestActivator_Activate_KeepsCurrentSeverity(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityCritical)})

	changes := f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Params: map[string]string{"max": "50"}})

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Type)
	assert.Equal(t, Some(SeverityCritical), changes[0].Severity)
	assert.Equal(t, "50", changes[0].Params["max"])
}

func TestActivator_Activate_Unchanged(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityMajor)})

	changes := f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(SeverityMajor)})

	assert.NotNil(t, changes)
	assert.True(t, changes.IsEmpty())
}

func TestActivator_Activate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		profileKey string
		activation RuleActivation
		check      func(error) bool
	}{
		{"unknown profile", "missing", RuleActivation{RuleKey: ruleLongMethod}, pkgerrors.IsNotFound},
		{"unknown rule", strictKey, RuleActivation{RuleKey: "java:S0"}, pkgerrors.IsNotFound},
		{"removed rule", strictKey, RuleActivation{RuleKey: ruleRemoved}, pkgerrors.IsValidation},
		{"other language", strictKey, RuleActivation{RuleKey: ruleJS}, pkgerrors.IsValidation},
		{"invalid severity", strictKey, RuleActivation{RuleKey: ruleLongMethod, Severity: Some(Severity("URGENT"))}, pkgerrors.IsValidation},
		{"invalid param value", strictKey, RuleActivation{RuleKey: ruleLongMethod, Params: map[string]string{"max": "lots"}}, pkgerrors.IsValidation},
		{"unknown param", strictKey, RuleActivation{RuleKey: ruleLongMethod, Params: map[string]string{"min": "1"}}, pkgerrors.IsValidation},
		{"invalid default", strictKey, RuleActivation{RuleKey: ruleBroken}, pkgerrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			sess, err := f.store.OpenSession(ctx)
			require.NoError(t, err)
			defer sess.Close()

			_, err = f.activator.Activate(ctx, sess, tt.activation, tt.profileKey)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestActivator_DeactivateInSession(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})

	var changes ChangeSet
	f.commit(t, func(sess Session) error {
		var err error
		changes, err = f.activator.DeactivateInSession(context.Background(), sess, NewActiveRuleKey(strictKey, ruleLongMethod))
		return err
	})

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDeactivated, changes[0].Type)
	assert.False(t, changes[0].Severity.IsSome())
	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestActivator_DeactivateInSession_NotActive(t *testing.T) {
	f := newFixture(t)

	var changes ChangeSet
	f.commit(t, func(sess Session) error {
		var err error
		changes, err = f.activator.DeactivateInSession(context.Background(), sess, NewActiveRuleKey(strictKey, ruleNaming))
		return err
	})

	assert.True(t, changes.IsEmpty())
}

func TestActivator_Deactivate_CommitsThenIndexes(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})

	res, err := f.activator.Deactivate(context.Background(), NewActiveRuleKey(strictKey, ruleLongMethod))

	require.NoError(t, err)
	assert.False(t, res.IndexStale)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeDeactivated, res.Changes[0].Type)
	assert.Equal(t, 1, f.index.Writes())
	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestActivator_Deactivate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.activator.Deactivate(context.Background(), NewActiveRuleKey("missing", ruleLongMethod))
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.activator.Deactivate(context.Background(), NewActiveRuleKey(strictKey, "java:S0"))
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.Equal(t, 0, f.index.Writes())
}

func TestActivator_BulkActivate_CountsFailures(t *testing.T) {
	f := newFixture(t)

	res, err := f.activator.BulkActivate(context.Background(), RuleQuery{}, strictKey, None[Severity]())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], string(ruleBroken))

	require.Len(t, res.Changes, 2)
	assert.Equal(t, ruleNaming, res.Changes[0].Key.RuleKey)
	assert.Equal(t, ruleLongMethod, res.Changes[1].Key.RuleKey)
	assert.ElementsMatch(t, []RuleKey{ruleNaming, ruleLongMethod}, ruleKeys(f.activeRules(t, strictKey)))

	// Propagation is left to the caller.
	assert.Equal(t, 0, f.index.Writes())
}

func TestActivator_BulkActivate_SeverityOverride(t *testing.T) {
	f := newFixture(t)

	res, err := f.activator.BulkActivate(context.Background(), RuleQuery{Tags: []string{"convention"}}, strictKey, Some(SeverityBlocker))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Some(SeverityBlocker), res.Changes[0].Severity)
}

func TestActivator_BulkActivate_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.activator.BulkActivate(ctx, RuleQuery{}, "missing", None[Severity]())
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.activator.BulkActivate(ctx, RuleQuery{Expression: "severity =="}, strictKey, None[Severity]())
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = f.activator.BulkActivate(ctx, RuleQuery{}, strictKey, Some(Severity("URGENT")))
	assert.True(t, pkgerrors.IsValidation(err))

	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestActivator_BulkActivate_CommitFailures(t *testing.T) {
	f := newFixture(t)
	f.store.FailCommits(errors.New("disk full"))

	res, err := f.activator.BulkActivate(context.Background(), RuleQuery{}, strictKey, None[Severity]())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	assert.True(t, res.Changes.IsEmpty())

	f.store.FailCommits(nil)
	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestActivator_BulkDeactivate(t *testing.T) {
	f := newFixture(t)
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleLongMethod})
	f.activate(t, strictKey, RuleActivation{RuleKey: ruleNaming})

	res, err := f.activator.BulkDeactivate(context.Background(), RuleQuery{}, strictKey)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, map[RuleKey]ChangeType{
		ruleNaming:     ChangeDeactivated,
		ruleLongMethod: ChangeDeactivated,
	}, changeTypes(res.Changes))
	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestActivator_BulkActivate_Concurrency(t *testing.T) {
	f := newFixture(t)
	var rules []Rule
	for i := 0; i < 40; i++ {
		rules = append(rules, Rule{
			Key:      NewRuleKey("java", "B"+string(rune('A'+i%26))+string(rune('a'+i/26))),
			Name:     "Generated",
			Language: "java",
			Severity: SeverityMinor,
			Status:   RuleStatusReady,
			Tags:     []string{"generated"},
		})
	}
	f.commit(t, func(sess Session) error {
		for i := range rules {
			if err := sess.Rules().Upsert(context.Background(), &rules[i]); err != nil {
				return err
			}
		}
		return nil
	})

	res, err := f.activator.BulkActivate(context.Background(), RuleQuery{Tags: []string{"generated"}}, strictKey, None[Severity]())

	require.NoError(t, err)
	assert.Equal(t, 40, res.Succeeded)
	assert.Len(t, res.Changes, 40)
	assert.Len(t, f.activeRules(t, strictKey), 40)
}
