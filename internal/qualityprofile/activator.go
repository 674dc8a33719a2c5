package qualityprofile

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"qprofile/internal/constants"
	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

// Activator decides how a rule activation or deactivation changes the
// active rules of a profile.
type Activator struct {
	store       Store
	selector    *RuleSelector
	propagator  *Propagator
	logger      logger.Logger
	concurrency int
	now         func() time.Time
}

type ActivatorOption func(*Activator)

// WithBulkConcurrency bounds the number of rules processed in parallel by
// bulk operations.
func WithBulkConcurrency(n int) ActivatorOption {
	return func(a *Activator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) ActivatorOption {
	return func(a *Activator) {
		a.now = now
	}
}

func NewActivator(store Store, selector *RuleSelector, propagator *Propagator, log logger.Logger, opts ...ActivatorOption) *Activator {
	a := &Activator{
		store:       store,
		selector:    selector,
		propagator:  propagator,
		logger:      log,
		concurrency: constants.DefaultBulkConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Activator) Activate(ctx context.Context, sess Session, activation RuleActivation, profileKey string) (ChangeSet, error) {
	profile, err := sess.Profiles().Get(ctx, profileKey)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", profileKey)
	}

	rule, err := sess.Rules().Get(ctx, activation.RuleKey)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("rule %q not found", activation.RuleKey)
	}
	if rule.Status == RuleStatusRemoved {
		return nil, pkgerrors.ErrValidation.WithMessage("rule %s is removed and cannot be activated", rule.Key)
	}
	if rule.Language != profile.Language {
		return nil, pkgerrors.ErrValidation.WithMessage("rule %s (%s) cannot be activated in a %s profile", rule.Key, rule.Language, profile.Language)
	}

	key := NewActiveRuleKey(profile.Key, rule.Key)
	existing, err := sess.ActiveRules().Get(ctx, key)
	if err != nil {
		return nil, err
	}

	severity := rule.Severity
	if existing != nil {
		severity = existing.Severity
	}
	if requested, ok := activation.Severity.Get(); ok {
		if !requested.Valid() {
			return nil, pkgerrors.ErrValidation.WithMessage("invalid severity %q", requested)
		}
		severity = requested
	}

	var currentParams map[string]string
	if existing != nil {
		currentParams = existing.Params
	}
	params, err := resolveParams(rule, currentParams, activation.Params)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	if existing == nil {
		ar := ActiveRule{Key: key, Severity: severity, Params: params, CreatedAt: now, UpdatedAt: now}
		if err := sess.ActiveRules().Insert(ctx, &ar); err != nil {
			return nil, err
		}
		return ChangeSet{NewActivatedChange(ar)}, nil
	}

	if existing.Severity == severity && paramsEqual(existing.Params, params) {
		return ChangeSet{}, nil
	}

	updated := *existing
	updated.Severity = severity
	updated.Params = params
	updated.UpdatedAt = now
	if err := sess.ActiveRules().Update(ctx, &updated); err != nil {
		return nil, err
	}
	return ChangeSet{NewUpdatedChange(updated)}, nil
}

// DeactivateInSession removes an active rule. Deactivating a rule that is not
// active yields an empty change set.
func (a *Activator) DeactivateInSession(ctx context.Context, sess Session, key ActiveRuleKey) (ChangeSet, error) {
	profile, err := sess.Profiles().Get(ctx, key.ProfileKey)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", key.ProfileKey)
	}

	rule, err := sess.Rules().Get(ctx, key.RuleKey)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("rule %q not found", key.RuleKey)
	}

	existing, err := sess.ActiveRules().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return ChangeSet{}, nil
	}

	if err := sess.ActiveRules().Delete(ctx, key); err != nil {
		return nil, err
	}
	return ChangeSet{NewDeactivatedChange(key)}, nil
}

// Deactivate runs DeactivateInSession in its own session, commits, and
// propagates the result.
func (a *Activator) Deactivate(ctx context.Context, key ActiveRuleKey) (*MutationResult, error) {
	changes, err := a.inSession(ctx, func(sess Session) (ChangeSet, error) {
		return a.DeactivateInSession(ctx, sess, key)
	})
	if err != nil {
		return nil, err
	}
	return a.propagator.Result(ctx, changes), nil
}

// BulkActivate activates every rule matched by query. Each rule is committed
// in its own session; the aggregate change set is returned unpropagated.
func (a *Activator) BulkActivate(ctx context.Context, query RuleQuery, profileKey string, severity Option[Severity]) (*BulkChangeResult, error) {
	if sev, ok := severity.Get(); ok && !sev.Valid() {
		return nil, pkgerrors.ErrValidation.WithMessage("invalid severity %q", sev)
	}

	rules, err := a.selectRules(ctx, profileKey, query)
	if err != nil {
		return nil, err
	}

	result := a.forEachRule(ctx, rules, func(sess Session, rule Rule) (ChangeSet, error) {
		return a.Activate(ctx, sess, RuleActivation{RuleKey: rule.Key, Severity: severity}, profileKey)
	})

	a.logger.InfowCtx(ctx, "Bulk activation finished",
		"profile_key", profileKey,
		"matched", len(rules),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

func (a *Activator) BulkDeactivate(ctx context.Context, query RuleQuery, profileKey string) (*BulkChangeResult, error) {
	rules, err := a.selectRules(ctx, profileKey, query)
	if err != nil {
		return nil, err
	}

	result := a.forEachRule(ctx, rules, func(sess Session, rule Rule) (ChangeSet, error) {
		return a.DeactivateInSession(ctx, sess, NewActiveRuleKey(profileKey, rule.Key))
	})

	a.logger.InfowCtx(ctx, "Bulk deactivation finished",
		"profile_key", profileKey,
		"matched", len(rules),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

func (a *Activator) selectRules(ctx context.Context, profileKey string, query RuleQuery) ([]Rule, error) {
	if a.selector == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "rule selector not initialized")
	}

	sess, err := a.store.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	profile, err := sess.Profiles().Get(ctx, profileKey)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", profileKey)
	}

	return a.selector.Select(ctx, sess.Rules(), profile.Language, query)
}

// forEachRule applies fn to each rule in a dedicated session. Failures are
// recorded in the result and never stop the other rules.
func (a *Activator) forEachRule(ctx context.Context, rules []Rule, fn func(sess Session, rule Rule) (ChangeSet, error)) *BulkChangeResult {
	result := &BulkChangeResult{Changes: ChangeSet{}}

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for _, rule := range rules {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					result.addFailure(rule.Key, pkgerrors.RecoverPanic(r))
				}
			}()

			changes, err := a.inSession(ctx, func(sess Session) (ChangeSet, error) {
				return fn(sess, rule)
			})
			if err != nil {
				a.logger.DebugwCtx(ctx, "Rule skipped in bulk change", "rule_key", rule.Key, "error", err)
				result.addFailure(rule.Key, err)
				return nil
			}
			result.addSuccess(changes)
			return nil
		})
	}
	_ = g.Wait()

	result.Changes.SortByKey()
	return result
}

func (a *Activator) inSession(ctx context.Context, fn func(sess Session) (ChangeSet, error)) (ChangeSet, error) {
	sess, err := a.store.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	changes, err := fn(sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return changes, nil
}
