package qualityprofile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qprofile/internal/auth"
	"qprofile/internal/logger"
	"qprofile/pkg/cel"
)

const (
	testOrg      = "default-organization"
	sonarWayKey  = "java-sonar-way"
	strictKey    = "java-strict"
	jsProfileKey = "js-recommended"
)

var (
	ruleLongMethod = RuleKey("java:S1234")
	ruleNaming     = RuleKey("java:S100")
	ruleBroken     = RuleKey("java:S200")
	ruleRemoved    = RuleKey("java:S300")
	ruleJS         = RuleKey("javascript:S1")
)

func testRules() []Rule {
	return []Rule{
		{
			Key:      ruleLongMethod,
			Name:     "Methods should not be too long",
			Language: "java",
			Severity: SeverityMajor,
			Status:   RuleStatusReady,
			Tags:     []string{"brain-overload"},
			Params: []RuleParam{
				{Name: "max", Type: ParamTypeInteger, DefaultValue: Some("20")},
			},
		},
		{
			Key:      ruleNaming,
			Name:     "Method names should comply with a naming convention",
			Language: "java",
			Severity: SeverityMinor,
			Status:   RuleStatusReady,
			Tags:     []string{"convention"},
			Params: []RuleParam{
				{Name: "format", Type: ParamTypeString, DefaultValue: Some("^[a-z][a-zA-Z0-9]*$")},
			},
		},
		{
			// Its default does not validate, so every activation fails.
			Key:      ruleBroken,
			Name:     "Rule with a broken default",
			Language: "java",
			Severity: SeverityInfo,
			Status:   RuleStatusReady,
			Params: []RuleParam{
				{Name: "threshold", Type: ParamTypeInteger, DefaultValue: Some("ten")},
			},
		},
		{
			Key:      ruleRemoved,
			Name:     "Removed rule",
			Language: "java",
			Severity: SeverityMajor,
			Status:   RuleStatusRemoved,
		},
		{
			Key:      ruleJS,
			Name:     "Unused variables should be removed",
			Language: "js",
			Severity: SeverityMajor,
			Status:   RuleStatusReady,
		},
	}
}

func testProfiles() []Profile {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Profile{
		{Key: sonarWayKey, Name: "Sonar way", Language: "java", Organization: testOrg, IsDefault: true, CreatedAt: now, UpdatedAt: now},
		{Key: strictKey, Name: "Strict", Language: "java", Organization: testOrg, CreatedAt: now, UpdatedAt: now},
		{Key: jsProfileKey, Name: "Recommended", Language: "js", Organization: testOrg, CreatedAt: now, UpdatedAt: now},
	}
}

func adminUser() auth.UserSession {
	return auth.NewUserSession("admin", auth.CapabilityProfileAdmin)
}

type fixture struct {
	store      *MemoryStore
	index      *MemoryActiveRuleIndex
	propagator *Propagator
	activator  *Activator
	factory    *Factory
	backuper   *Backuper
	reset      *Reset
}

func newFixture(t *testing.T, builtIns ...BuiltInProfile) *fixture {
	t.Helper()

	log := logger.NopLogger()
	store := NewMemoryStore()
	seed(t, store, testProfiles(), testRules())

	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)

	index := NewMemoryActiveRuleIndex()
	propagator := NewPropagator(index, nil, log)
	activator := NewActivator(store, NewRuleSelector(evaluator), propagator, log, WithBulkConcurrency(2))
	factory := NewFactory(store, nil, log)

	return &fixture{
		store:      store,
		index:      index,
		propagator: propagator,
		activator:  activator,
		factory:    factory,
		backuper:   NewBackuper(store, activator, factory, testOrg, log),
		reset:      NewReset(builtIns, activator, factory, testOrg, log),
	}
}

func (f *fixture) service(opts ...ServiceOption) Service {
	all := []ServiceOption{
		WithBackuper(f.backuper),
		WithResetter(f.reset),
		WithSearcher(f.index),
	}
	return NewService(f.store, f.activator, f.factory, f.propagator, logger.NopLogger(), append(all, opts...)...)
}

func seed(t *testing.T, store *MemoryStore, profiles []Profile, rules []Rule) {
	t.Helper()
	ctx := context.Background()

	sess, err := store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	for i := range rules {
		require.NoError(t, sess.Rules().Upsert(ctx, &rules[i]))
	}
	for i := range profiles {
		require.NoError(t, sess.Profiles().Insert(ctx, &profiles[i]))
	}
	require.NoError(t, sess.Commit())
}

// commit runs fn in its own session and commits it.
func (f *fixture) commit(t *testing.T, fn func(sess Session) error) {
	t.Helper()

	sess, err := f.store.OpenSession(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, fn(sess))
	require.NoError(t, sess.Commit())
}

func (f *fixture) activate(t *testing.T, profileKey string, activation RuleActivation) ChangeSet {
	t.Helper()
	var changes ChangeSet
	f.commit(t, func(sess Session) error {
		var err error
		changes, err = f.activator.Activate(context.Background(), sess, activation, profileKey)
		return err
	})
	return changes
}

func (f *fixture) activeRules(t *testing.T, profileKey string) []ActiveRule {
	t.Helper()
	ctx := context.Background()

	sess, err := f.store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	rules, err := sess.ActiveRules().ListByProfile(ctx, profileKey)
	require.NoError(t, err)
	return rules
}

func (f *fixture) profile(t *testing.T, key string) *Profile {
	t.Helper()
	ctx := context.Background()

	sess, err := f.store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	p, err := sess.Profiles().Get(ctx, key)
	require.NoError(t, err)
	return p
}

func (f *fixture) profileByName(t *testing.T, organization, name, language string) *Profile {
	t.Helper()
	ctx := context.Background()

	sess, err := f.store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	p, err := sess.Profiles().GetByName(ctx, organization, name, language)
	require.NoError(t, err)
	return p
}

func ruleKeys(rules []ActiveRule) []RuleKey {
	keys := make([]RuleKey, 0, len(rules))
	for _, ar := range rules {
		keys = append(keys, ar.Key.RuleKey)
	}
	return keys
}

func changeTypes(changes ChangeSet) map[RuleKey]ChangeType {
	out := make(map[RuleKey]ChangeType, len(changes))
	for _, c := range changes {
		out[c.Key.RuleKey] = c.Type
	}
	return out
}
