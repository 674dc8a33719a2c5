package qualityprofile

import (
	"context"
	"sort"

	"qprofile/pkg/cel"
	pkgerrors "qprofile/pkg/errors"
)

// RuleQuery selects the rules touched by a bulk operation. Empty criteria
// match everything; non-empty ones are combined with AND, values inside one
// criterion with OR.
type RuleQuery struct {
	Repositories []string   `json:"repositories,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Severities   []Severity `json:"severities,omitempty"`
	RuleKeys     []RuleKey  `json:"rule_keys,omitempty"`
	// Expression is an optional CEL filter over the rule attributes.
	Expression string `json:"expression,omitempty"`
	// IncludeDeprecated also selects DEPRECATED rules.
	IncludeDeprecated bool `json:"include_deprecated,omitempty"`
}

// RuleSelector resolves a RuleQuery against the rules of one language.
type RuleSelector struct {
	evaluator *cel.Evaluator
}

func NewRuleSelector(evaluator *cel.Evaluator) *RuleSelector {
	return &RuleSelector{evaluator: evaluator}
}

func (s *RuleSelector) Validate(query RuleQuery) error {
	for _, sev := range query.Severities {
		if !sev.Valid() {
			return pkgerrors.ErrValidation.WithMessage("invalid severity %q", sev)
		}
	}
	if query.Expression == "" {
		return nil
	}
	if s.evaluator == nil {
		return pkgerrors.ErrValidation.WithMessage("rule expressions are not supported")
	}
	if err := s.evaluator.ValidateFilterExpression(query.Expression); err != nil {
		return pkgerrors.ErrValidation.WithMessage("%v", err)
	}
	return nil
}

// Select returns the matching rules ordered by key. REMOVED rules are never
// selected.
func (s *RuleSelector) Select(ctx context.Context, rules RuleRepository, language string, query RuleQuery) ([]Rule, error) {
	if err := s.Validate(query); err != nil {
		return nil, err
	}

	var filter *cel.Filter
	if query.Expression != "" {
		f, err := s.evaluator.CompileFilter(query.Expression)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithMessage("%v", err)
		}
		filter = f
	}

	candidates, err := rules.ListByLanguage(ctx, language)
	if err != nil {
		return nil, err
	}

	var matched []Rule
	for _, r := range candidates {
		if !query.matchesStatic(r) {
			continue
		}
		if filter != nil {
			ok, err := filter.Match(ctx, ruleFacts(r))
			if err != nil {
				return nil, pkgerrors.ErrValidation.WithMessage("rule %s: %v", r.Key, err)
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	return matched, nil
}

func (q RuleQuery) matchesStatic(r Rule) bool {
	switch r.Status {
	case RuleStatusRemoved:
		return false
	case RuleStatusDeprecated:
		if !q.IncludeDeprecated {
			return false
		}
	}

	if len(q.RuleKeys) > 0 && !containsValue(q.RuleKeys, r.Key) {
		return false
	}
	if len(q.Repositories) > 0 && !containsValue(q.Repositories, r.Key.Repository()) {
		return false
	}
	if len(q.Severities) > 0 && !containsValue(q.Severities, r.Severity) {
		return false
	}
	if len(q.Tags) > 0 {
		found := false
		for _, tag := range r.Tags {
			if containsValue(q.Tags, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsValue[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func ruleFacts(r Rule) cel.RuleFacts {
	defaults := make(map[string]string, len(r.Params))
	for _, p := range r.Params {
		if def, ok := p.DefaultValue.Get(); ok {
			defaults[p.Name] = def
		}
	}
	return cel.RuleFacts{
		Key:        string(r.Key),
		Repository: r.Key.Repository(),
		Name:       r.Name,
		Language:   r.Language,
		Severity:   string(r.Severity),
		Status:     string(r.Status),
		Tags:       r.Tags,
		Params:     defaults,
	}
}
