package qualityprofile

import (
	"context"
)

// replaceActiveRules makes the active rules of profileKey exactly match
// activations. Severities and parameters not listed fall back to the rule
// defaults. Rules unknown to the installation are skipped and reported; any
// other error aborts.
func replaceActiveRules(ctx context.Context, sess Session, engine ActivationEngine, profileKey string, activations []RuleActivation) (ChangeSet, []RuleKey, error) {
	changes := ChangeSet{}
	var skipped []RuleKey
	wanted := make(map[RuleKey]bool, len(activations))

	for _, activation := range activations {
		rule, err := sess.Rules().Get(ctx, activation.RuleKey)
		if err != nil {
			return nil, nil, err
		}
		if rule == nil {
			skipped = append(skipped, activation.RuleKey)
			continue
		}

		exact := activation
		exact.Params = exactParams(rule, activation.Params)
		if !exact.Severity.IsSome() {
			exact.Severity = Some(rule.Severity)
		}
		ruleChanges, err := engine.Activate(ctx, sess, exact, profileKey)
		if err != nil {
			return nil, nil, err
		}
		wanted[rule.Key] = true
		changes = changes.Merge(ruleChanges)
	}

	current, err := sess.ActiveRules().ListByProfile(ctx, profileKey)
	if err != nil {
		return nil, nil, err
	}
	for _, ar := range current {
		if wanted[ar.Key.RuleKey] {
			continue
		}
		ruleChanges, err := engine.DeactivateInSession(ctx, sess, ar.Key)
		if err != nil {
			return nil, nil, err
		}
		changes = changes.Merge(ruleChanges)
	}

	return changes, skipped, nil
}

// exactParams lists every parameter of rule, with an empty value (reset to
// default) for those absent from params. Unknown names are kept so that
// validation reports them.
func exactParams(rule *Rule, params map[string]string) map[string]string {
	out := make(map[string]string, len(rule.Params)+len(params))
	for _, p := range rule.Params {
		out[p.Name] = ""
	}
	for k, v := range params {
		out[k] = v
	}
	return out
}
