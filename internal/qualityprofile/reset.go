package qualityprofile

import (
	"context"
	"strings"

	"qprofile/internal/config"
	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

// BuiltInProfile is a profile shipped with the installation.
type BuiltInProfile struct {
	Name        string
	Language    string
	Default     bool
	Activations []RuleActivation
}

func BuiltInProfilesFromConfig(cfgs []config.BuiltInProfileConfig) ([]BuiltInProfile, error) {
	out := make([]BuiltInProfile, 0, len(cfgs))
	for _, c := range cfgs {
		bp := BuiltInProfile{Name: c.Name, Language: c.Language, Default: c.Default}
		for _, r := range c.Rules {
			ruleKey := RuleKey(strings.TrimSpace(r.RuleKey))
			if !ruleKey.Valid() {
				return nil, pkgerrors.ErrValidation.WithMessage("built-in profile %q: invalid rule key %q", c.Name, r.RuleKey)
			}
			activation := RuleActivation{RuleKey: ruleKey, Params: copyParams(r.Params)}
			if r.Severity != "" {
				sev, err := ParseSeverity(r.Severity)
				if err != nil {
					return nil, pkgerrors.ErrValidation.WithMessage("built-in profile %q: %v", c.Name, err)
				}
				activation.Severity = Some(sev)
			}
			bp.Activations = append(bp.Activations, activation)
		}
		out = append(out, bp)
	}
	return out, nil
}

// Reset restores built-in profiles to their shipped rule sets.
type Reset struct {
	builtIns     []BuiltInProfile
	engine       ActivationEngine
	factory      ProfileFactory
	organization string
	logger       logger.Logger
}

func NewReset(builtIns []BuiltInProfile, engine ActivationEngine, factory ProfileFactory, organization string, log logger.Logger) *Reset {
	return &Reset{
		builtIns:     builtIns,
		engine:       engine,
		factory:      factory,
		organization: organization,
		logger:       log,
	}
}

func (r *Reset) BuiltIns(language string) []BuiltInProfile {
	var out []BuiltInProfile
	for _, bp := range r.builtIns {
		if bp.Language == language {
			out = append(out, bp)
		}
	}
	return out
}

// ResetLanguage recreates missing built-in profiles of language and resets
// every one of them to its shipped rules. A built-in marked default becomes
// the language default only when the language has none.
func (r *Reset) ResetLanguage(ctx context.Context, sess Session, language string) (ChangeSet, error) {
	builtIns := r.BuiltIns(language)
	if len(builtIns) == 0 {
		return nil, pkgerrors.ErrNotFound.WithMessage("no built-in quality profiles for language %s", language)
	}

	changes := ChangeSet{}
	for _, bp := range builtIns {
		profile, err := sess.Profiles().GetByName(ctx, r.organization, bp.Name, bp.Language)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			profile, err = r.factory.Create(ctx, sess, r.organization, bp.Name, bp.Language)
			if err != nil {
				return nil, err
			}
		}

		profileChanges, skipped, err := replaceActiveRules(ctx, sess, r.engine, profile.Key, bp.Activations)
		if err != nil {
			return nil, err
		}
		if len(skipped) > 0 {
			r.logger.WarnwCtx(ctx, "Built-in profile references unknown rules",
				"profile", bp.Name,
				"language", language,
				"rules", skipped,
			)
		}
		changes = changes.Merge(profileChanges)

		if bp.Default {
			current, err := sess.Profiles().GetDefault(ctx, language)
			if err != nil {
				return nil, err
			}
			if current == nil {
				if err := r.factory.SetDefault(ctx, sess, profile.Key); err != nil {
					return nil, err
				}
			}
		}
	}

	return changes, nil
}

// Languages returns the languages that ship built-in profiles, in
// configuration order.
func (r *Reset) Languages() []string {
	var out []string
	seen := map[string]bool{}
	for _, bp := range r.builtIns {
		if !seen[bp.Language] {
			seen[bp.Language] = true
			out = append(out, bp.Language)
		}
	}
	return out
}

// RegisterMissing resets every language that lacks at least one of its
// built-in profiles. Languages whose built-ins all exist are left alone, so
// user edits survive restarts. Each language commits on its own and the
// union of changes is propagated once.
func (r *Reset) RegisterMissing(ctx context.Context, store Store, propagator *Propagator) (*MutationResult, error) {
	changes := ChangeSet{}
	for _, language := range r.Languages() {
		languageChanges, err := r.registerLanguage(ctx, store, language)
		if err != nil {
			return nil, err
		}
		changes = changes.Merge(languageChanges)
	}
	changes.SortByKey()
	return propagator.Result(ctx, changes), nil
}

func (r *Reset) registerLanguage(ctx context.Context, store Store, language string) (ChangeSet, error) {
	sess, err := store.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	missing := false
	for _, bp := range r.BuiltIns(language) {
		p, err := sess.Profiles().GetByName(ctx, r.organization, bp.Name, language)
		if err != nil {
			return nil, err
		}
		if p == nil {
			missing = true
			break
		}
	}
	if !missing {
		return ChangeSet{}, nil
	}

	changes, err := r.ResetLanguage(ctx, sess, language)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}

	r.logger.InfowCtx(ctx, "Built-in quality profiles registered",
		"language", language,
		"changes", len(changes),
	)
	return changes, nil
}
