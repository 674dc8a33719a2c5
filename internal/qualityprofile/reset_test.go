package qualityprofile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qprofile/internal/config"
	pkgerrors "qprofile/pkg/errors"
)

func testBuiltIns() []BuiltInProfile {
	return []BuiltInProfile{
		{
			Name:     "Sonar way",
			Language: "java",
			Default:  true,
			Activations: []RuleActivation{
				{RuleKey: ruleLongMethod, Severity: Some(SeverityCritical)},
				{RuleKey: ruleNaming},
			},
		},
		{
			Name:        "Sonar way extended",
			Language:    "java",
			Activations: []RuleActivation{{RuleKey: ruleNaming, Params: map[string]string{"format": "^[a-z]+$"}}},
		},
		{
			Name:        "Sonar way",
			Language:    "js",
			Default:     true,
			Activations: []RuleActivation{{RuleKey: ruleJS}, {RuleKey: "javascript:S404"}},
		},
	}
}

func (f *fixture) resetLanguage(t *testing.T, language string) (ChangeSet, error) {
	t.Helper()
	ctx := context.Background()

	sess, err := f.store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	changes, err := f.reset.ResetLanguage(ctx, sess, language)
	if err != nil {
		return nil, err
	}
	require.NoError(t, sess.Commit())
	return changes, nil
}

func TestReset_ResetLanguage(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)
	seed(t, f.store, nil, []Rule{{Key: "java:S500", Name: "Legacy rule", Language: "java", Severity: SeverityMinor, Status: RuleStatusReady}})
	f.activate(t, sonarWayKey, RuleActivation{RuleKey: ruleNaming, Severity: Some(SeverityBlocker)})
	f.activate(t, sonarWayKey, RuleActivation{RuleKey: "java:S500"})

	changes, err := f.resetLanguage(t, "java")
	require.NoError(t, err)

	active := f.activeRules(t, sonarWayKey)
	require.Len(t, active, 2)
	assert.Equal(t, ruleNaming, active[0].Key.RuleKey)
	assert.Equal(t, SeverityMinor, active[0].Severity)
	assert.Equal(t, ruleLongMethod, active[1].Key.RuleKey)
	assert.Equal(t, SeverityCritical, active[1].Severity)

	extended := f.profileByName(t, testOrg, "Sonar way extended", "java")
	require.NotNil(t, extended)
	extendedRules := f.activeRules(t, extended.Key)
	require.Len(t, extendedRules, 1)
	assert.Equal(t, "^[a-z]+$", extendedRules[0].Params["format"])

	counts := changes.CountByType()
	assert.Equal(t, 2, counts[ChangeActivated])
	assert.Equal(t, 1, counts[ChangeUpdated])
	assert.Equal(t, 1, counts[ChangeDeactivated])

	// The existing default is kept.
	assert.True(t, f.profile(t, sonarWayKey).IsDefault)
	assert.False(t, extended.IsDefault)
}

func TestReset_ResetLanguage_Idempotent(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)

	_, err := f.resetLanguage(t, "java")
	require.NoError(t, err)
	changes, err := f.resetLanguage(t, "java")
	require.NoError(t, err)

	assert.True(t, changes.IsEmpty())
}

func TestReset_ResetLanguage_ElectsDefault(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)

	_, err := f.resetLanguage(t, "js")
	require.NoError(t, err)

	builtIn := f.profileByName(t, testOrg, "Sonar way", "js")
	require.NotNil(t, builtIn)
	assert.True(t, builtIn.IsDefault)
	assert.Equal(t, []RuleKey{ruleJS}, ruleKeys(f.activeRules(t, builtIn.Key)))
}

func TestReset_ResetLanguage_Unknown(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)

	_, err := f.resetLanguage(t, "python")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestBuiltInProfilesFromConfig(t *testing.T) {
	profiles, err := BuiltInProfilesFromConfig([]config.BuiltInProfileConfig{
		{
			Name:     "Sonar way",
			Language: "java",
			Default:  true,
			Rules: []config.BuiltInActivationConfig{
				{RuleKey: "java:S1234", Severity: "critical", Params: map[string]string{"max": "25"}},
				{RuleKey: "java:S100"},
			},
		},
	})

	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].Default)
	require.Len(t, profiles[0].Activations, 2)
	assert.Equal(t, Some(SeverityCritical), profiles[0].Activations[0].Severity)
	assert.Equal(t, "25", profiles[0].Activations[0].Params["max"])
	assert.False(t, profiles[0].Activations[1].Severity.IsSome())

	_, err = BuiltInProfilesFromConfig([]config.BuiltInProfileConfig{{Name: "x", Rules: []config.BuiltInActivationConfig{{RuleKey: "S1234"}}}})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = BuiltInProfilesFromConfig([]config.BuiltInProfileConfig{{Name: "x", Rules: []config.BuiltInActivationConfig{{RuleKey: "java:S1", Severity: "urgent"}}}})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestReset_RegisterMissing(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)
	ctx := context.Background()

	res, err := f.reset.RegisterMissing(ctx, f.store, f.propagator)
	require.NoError(t, err)
	assert.False(t, res.IndexStale)
	assert.Equal(t, 1, f.index.Writes())
	assert.NotNil(t, f.profileByName(t, testOrg, "Sonar way extended", "java"))
	assert.NotNil(t, f.profileByName(t, testOrg, "Sonar way", "js"))

	// User edits to existing built-ins survive a second registration.
	f.activate(t, sonarWayKey, RuleActivation{RuleKey: ruleNaming, Severity: Some(SeverityBlocker)})
	res, err = f.reset.RegisterMissing(ctx, f.store, f.propagator)
	require.NoError(t, err)
	assert.True(t, res.Changes.IsEmpty())
	assert.Equal(t, 1, f.index.Writes())
	for _, ar := range f.activeRules(t, sonarWayKey) {
		if ar.Key.RuleKey == ruleNaming {
			assert.Equal(t, SeverityBlocker, ar.Severity)
		}
	}
}

func TestReset_Languages(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)
	assert.Equal(t, []string{"java", "js"}, f.reset.Languages())
}
