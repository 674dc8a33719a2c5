package qualityprofile

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"qprofile/internal/auth"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
	"qprofile/pkg/logging"
	"qprofile/pkg/metrics"
	"qprofile/pkg/tracing"
)

type service struct {
	store      Store
	activator  RuleActivator
	factory    ProfileFactory
	backuper   ProfileBackuper
	resetter   ProfileResetter
	searcher   ActiveRuleSearcher
	propagator *Propagator
	logger     logger.Logger
}

type ServiceOption func(*service)

func WithBackuper(backuper ProfileBackuper) ServiceOption {
	return func(s *service) {
		s.backuper = backuper
	}
}

func WithResetter(resetter ProfileResetter) ServiceOption {
	return func(s *service) {
		s.resetter = resetter
	}
}

func WithSearcher(searcher ActiveRuleSearcher) ServiceOption {
	return func(s *service) {
		s.searcher = searcher
	}
}

func NewService(store Store, activator RuleActivator, factory ProfileFactory, propagator *Propagator, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		store:      store,
		activator:  activator,
		factory:    factory,
		propagator: propagator,
		logger:     log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Activate(ctx context.Context, user auth.UserSession, profileKey string, activation RuleActivation) (res *MutationResult, err error) {
	ctx, done := s.begin(ctx, user, "activate", attribute.String("profile_key", profileKey), attribute.String("rule_key", string(activation.RuleKey)))
	defer func() { done(err, res) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "activate", func(sess Session) (ChangeSet, error) {
		return s.activator.Activate(ctx, sess, activation, profileKey)
	})
}

func (s *service) Deactivate(ctx context.Context, user auth.UserSession, key ActiveRuleKey) (res *MutationResult, err error) {
	ctx, done := s.begin(ctx, user, "deactivate", attribute.String("profile_key", key.ProfileKey), attribute.String("rule_key", string(key.RuleKey)))
	defer func() { done(err, res) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}

	// The activator commits and propagates on its own.
	res, err = s.activator.Deactivate(ctx, key)
	if err != nil {
		return nil, pkgerrors.WrapInternal(err)
	}
	metrics.ObserveChangeSetSize("deactivate", len(res.Changes))
	return res, nil
}

func (s *service) BulkActivate(ctx context.Context, user auth.UserSession, query RuleQuery, profileKey string, severity Option[Severity]) (res *BulkChangeResult, err error) {
	ctx, done := s.begin(ctx, user, "bulk_activate", attribute.String("profile_key", profileKey))
	defer func() { done(err, nil) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}

	res, err = s.activator.BulkActivate(ctx, query, profileKey, severity)
	if err != nil {
		return nil, pkgerrors.WrapInternal(err)
	}
	s.propagateBulk(ctx, "bulk_activate", res)
	return res, nil
}

func (s *service) BulkDeactivate(ctx context.Context, user auth.UserSession, query RuleQuery, profileKey string) (res *BulkChangeResult, err error) {
	ctx, done := s.begin(ctx, user, "bulk_deactivate", attribute.String("profile_key", profileKey))
	defer func() { done(err, nil) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}

	res, err = s.activator.BulkDeactivate(ctx, query, profileKey)
	if err != nil {
		return nil, pkgerrors.WrapInternal(err)
	}
	s.propagateBulk(ctx, "bulk_deactivate", res)
	return res, nil
}

// propagateBulk indexes the union of all per-rule commits once.
func (s *service) propagateBulk(ctx context.Context, op string, res *BulkChangeResult) {
	metrics.ObserveChangeSetSize(op, len(res.Changes))
	if res.Failed > 0 {
		metrics.AddBulkRuleFailures(op, res.Failed)
	}
	if err := s.propagator.Propagate(ctx, res.Changes); err != nil {
		res.IndexStale = true
	}
}

// Backup is available without the profile administration capability.
func (s *service) Backup(ctx context.Context, profileKey string, w io.Writer) (err error) {
	ctx, done := s.begin(ctx, nil, "backup", attribute.String("profile_key", profileKey))
	defer func() { done(err, nil) }()

	if s.backuper == nil {
		return pkgerrors.ErrInternal.WithDetail("message", "backuper not initialized")
	}
	return pkgerrors.WrapInternal(s.backuper.Backup(ctx, profileKey, w))
}

func (s *service) Restore(ctx context.Context, user auth.UserSession, r io.Reader, organization Option[string]) (res *RestoreResult, err error) {
	ctx, done := s.begin(ctx, user, "restore")
	defer func() { done(err, nil) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}
	if s.backuper == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "backuper not initialized")
	}

	err = s.inSession(ctx, func(sess Session) error {
		var restoreErr error
		res, restoreErr = s.backuper.Restore(ctx, sess, r, organization)
		return restoreErr
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveChangeSetSize("restore", len(res.Changes))
	if err := s.propagator.Propagate(ctx, res.Changes); err != nil {
		res.IndexStale = true
	}
	return res, nil
}

func (s *service) RestoreBuiltInProfilesForLanguage(ctx context.Context, user auth.UserSession, language string) (res *MutationResult, err error) {
	ctx, done := s.begin(ctx, user, "restore_built_in", attribute.String("language", language))
	defer func() { done(err, res) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(language) == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("language is required")
	}
	if s.resetter == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "resetter not initialized")
	}

	return s.mutate(ctx, "restore_built_in", func(sess Session) (ChangeSet, error) {
		return s.resetter.ResetLanguage(ctx, sess, language)
	})
}

func (s *service) Delete(ctx context.Context, user auth.UserSession, profileKey string) (res *MutationResult, err error) {
	ctx, done := s.begin(ctx, user, "delete", attribute.String("profile_key", profileKey))
	defer func() { done(err, res) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "delete", func(sess Session) (ChangeSet, error) {
		return s.factory.Delete(ctx, sess, profileKey, false)
	})
}

// Rename changes no active rule, so nothing is propagated.
func (s *service) Rename(ctx context.Context, user auth.UserSession, profileKey, newName string) (err error) {
	ctx, done := s.begin(ctx, user, "rename", attribute.String("profile_key", profileKey))
	defer func() { done(err, nil) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return err
	}

	return s.inSession(ctx, func(sess Session) error {
		return s.factory.Rename(ctx, sess, profileKey, newName)
	})
}

func (s *service) SetDefault(ctx context.Context, user auth.UserSession, profileKey string) (err error) {
	ctx, done := s.begin(ctx, user, "set_default", attribute.String("profile_key", profileKey))
	defer func() { done(err, nil) }()

	if err := auth.CheckProfileAdmin(user); err != nil {
		return err
	}

	return s.inSession(ctx, func(sess Session) error {
		return s.factory.SetDefault(ctx, sess, profileKey)
	})
}

func (s *service) GetDefault(ctx context.Context, language string) (Option[Profile], error) {
	profile, err := s.factory.GetDefault(ctx, language)
	if err != nil {
		return None[Profile](), pkgerrors.WrapInternal(err)
	}
	return profile, nil
}

func (s *service) SearchActiveRules(ctx context.Context, query IndexQuery) ([]ActiveRule, error) {
	if s.searcher == nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithDetail("message", "active rule index not configured")
	}
	if strings.TrimSpace(query.ProfileKey) == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("profile key is required")
	}
	if query.Limit <= 0 {
		query.Limit = constants.DefaultLimit
	}
	if query.Limit > constants.MaxLimit {
		query.Limit = constants.MaxLimit
	}

	rules, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithCause(err)
	}
	return rules, nil
}

// mutate runs fn in a fresh session, commits, and only then propagates the
// resulting change set. A failed commit never reaches the index. The session
// is released before propagation starts.
func (s *service) mutate(ctx context.Context, op string, fn func(sess Session) (ChangeSet, error)) (*MutationResult, error) {
	var changes ChangeSet
	err := s.inSession(ctx, func(sess Session) error {
		var fnErr error
		changes, fnErr = fn(sess)
		return fnErr
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveChangeSetSize(op, len(changes))
	return s.propagator.Result(ctx, changes), nil
}

func (s *service) inSession(ctx context.Context, fn func(sess Session) error) error {
	sess, err := s.store.OpenSession(ctx)
	if err != nil {
		return pkgerrors.WrapInternal(err)
	}
	defer sess.Close()

	if err := fn(sess); err != nil {
		return pkgerrors.WrapInternal(err)
	}
	return pkgerrors.WrapInternal(sess.Commit())
}

// begin starts the span and metrics of one operation. The returned func
// records the outcome.
func (s *service) begin(ctx context.Context, user auth.UserSession, op string, attrs ...attribute.KeyValue) (context.Context, func(err error, res *MutationResult)) {
	if user != nil && user.IsLoggedIn() {
		ctx = logging.WithUserLogin(ctx, user.Login())
	}
	ctx, span := tracing.StartSpan(ctx, "qualityprofile."+op, attrs...)
	start := time.Now()

	return ctx, func(err error, res *MutationResult) {
		defer span.End()
		metrics.ObserveProfileMutationDuration(op, time.Since(start))

		status := "success"
		switch {
		case err != nil:
			status = errorStatus(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if status == "internal_error" {
				s.logger.ErrorwCtx(ctx, "Quality profile operation failed", "operation", op, "error", err)
			} else {
				s.logger.DebugwCtx(ctx, "Quality profile operation rejected", "operation", op, "error", err)
			}
		case res != nil && res.IndexStale:
			status = "index_stale"
			span.AddEvent("index propagation failed", trace.WithAttributes(attribute.String("error", errString(res.IndexError))))
		}
		if res != nil {
			span.SetAttributes(attribute.Int("changes", len(res.Changes)))
		}
		metrics.IncProfileMutation(op, status)
	}
}

func errorStatus(err error) string {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "internal_error"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
