package qualityprofile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qprofile/pkg/cel"
	pkgerrors "qprofile/pkg/errors"
)

func selectKeys(t *testing.T, f *fixture, language string, query RuleQuery) ([]RuleKey, error) {
	t.Helper()
	ctx := context.Background()

	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)
	selector := NewRuleSelector(evaluator)

	sess, err := f.store.OpenSession(ctx)
	require.NoError(t, err)
	defer sess.Close()

	rules, err := selector.Select(ctx, sess.Rules(), language, query)
	if err != nil {
		return nil, err
	}
	keys := make([]RuleKey, 0, len(rules))
	for _, r := range rules {
		keys = append(keys, r.Key)
	}
	return keys, nil
}

func TestRuleSelector_Select(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query RuleQuery
		want  []RuleKey
	}{
		{"empty query skips removed rules", RuleQuery{}, []RuleKey{ruleNaming, ruleLongMethod, ruleBroken}},
		{"by tag", RuleQuery{Tags: []string{"convention", "unknown"}}, []RuleKey{ruleNaming}},
		{"by severity", RuleQuery{Severities: []Severity{SeverityMajor}}, []RuleKey{ruleLongMethod}},
		{"by key", RuleQuery{RuleKeys: []RuleKey{ruleBroken, ruleRemoved}}, []RuleKey{ruleBroken}},
		{"by repository", RuleQuery{Repositories: []string{"javascript"}}, []RuleKey{}},
		{"expression", RuleQuery{Expression: `key.startsWith("java:S1")`}, []RuleKey{ruleNaming, ruleLongMethod}},
		{"expression on params", RuleQuery{Expression: `"max" in params`}, []RuleKey{ruleLongMethod}},
		{"criteria combine with AND", RuleQuery{Severities: []Severity{SeverityMinor, SeverityMajor}, Expression: `"brain-overload" in tags`}, []RuleKey{ruleLongMethod}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectKeys(t, f, "java", tt.query)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestRuleSelector_Select_IsSortedByKey(t *testing.T) {
	f := newFixture(t)

	got, err := selectKeys(t, f, "java", RuleQuery{})
	require.NoError(t, err)
	assert.Equal(t, []RuleKey{ruleNaming, ruleLongMethod, ruleBroken}, got)
}

func TestRuleSelector_Deprecated(t *testing.T) {
	f := newFixture(t)
	f.commit(t, func(sess Session) error {
		return sess.Rules().Upsert(context.Background(), &Rule{
			Key: "java:S999", Name: "Old rule", Language: "java", Severity: SeverityMinor, Status: RuleStatusDeprecated,
		})
	})

	got, err := selectKeys(t, f, "java", RuleQuery{RuleKeys: []RuleKey{"java:S999"}})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = selectKeys(t, f, "java", RuleQuery{RuleKeys: []RuleKey{"java:S999"}, IncludeDeprecated: true})
	require.NoError(t, err)
	assert.Equal(t, []RuleKey{"java:S999"}, got)
}

func TestRuleSelector_Validate(t *testing.T) {
	f := newFixture(t)

	_, err := selectKeys(t, f, "java", RuleQuery{Expression: "key ==="})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = selectKeys(t, f, "java", RuleQuery{Expression: `key`})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = selectKeys(t, f, "java", RuleQuery{Severities: []Severity{"URGENT"}})
	assert.True(t, pkgerrors.IsValidation(err))

	selector := NewRuleSelector(nil)
	assert.True(t, pkgerrors.IsValidation(selector.Validate(RuleQuery{Expression: "true"})))
}
