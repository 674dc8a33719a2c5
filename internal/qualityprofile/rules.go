package qualityprofile

import (
	"context"
	"strings"

	"qprofile/internal/config"
	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

func RulesFromConfig(cfgs []config.RuleDefinitionConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(cfgs))
	seen := make(map[RuleKey]bool, len(cfgs))
	for _, c := range cfgs {
		key := RuleKey(strings.TrimSpace(c.Key))
		if !key.Valid() {
			return nil, pkgerrors.ErrValidation.WithMessage("invalid rule key %q", c.Key)
		}
		if seen[key] {
			return nil, pkgerrors.ErrValidation.WithMessage("duplicate rule key %q", key)
		}
		seen[key] = true

		severity, err := ParseSeverity(c.Severity)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithMessage("rule %s: %v", key, err)
		}

		status := RuleStatus(strings.ToUpper(c.Status))
		switch status {
		case "":
			status = RuleStatusReady
		case RuleStatusReady, RuleStatusDeprecated, RuleStatusRemoved:
		default:
			return nil, pkgerrors.ErrValidation.WithMessage("rule %s: invalid status %q", key, c.Status)
		}

		rule := Rule{
			Key:      key,
			Name:     c.Name,
			Language: c.Language,
			Severity: severity,
			Status:   status,
			Tags:     c.Tags,
		}
		for _, p := range c.Params {
			param := RuleParam{
				Name:        p.Name,
				Type:        ParamType(strings.ToUpper(p.Type)),
				Description: p.Description,
			}
			if param.Type == "" {
				param.Type = ParamTypeString
			}
			if p.Default != "" {
				param.DefaultValue = Some(p.Default)
			}
			rule.Params = append(rule.Params, param)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// RuleRegistrar loads the rule catalog into the system of record.
type RuleRegistrar struct {
	store  Store
	logger logger.Logger
}

func NewRuleRegistrar(store Store, log logger.Logger) *RuleRegistrar {
	return &RuleRegistrar{store: store, logger: log}
}

// Register upserts rules in a single session.
func (r *RuleRegistrar) Register(ctx context.Context, rules []Rule) error {
	if len(rules) == 0 {
		return nil
	}

	sess, err := r.store.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	for i := range rules {
		if err := sess.Rules().Upsert(ctx, &rules[i]); err != nil {
			return err
		}
	}
	if err := sess.Commit(); err != nil {
		return err
	}

	r.logger.Infow("Rule catalog registered", "rules", len(rules))
	return nil
}
