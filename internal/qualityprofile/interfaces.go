package qualityprofile

import (
	"context"
	"io"

	"qprofile/internal/auth"
)

// Service is the profile mutation facade. Every mutating operation is
// authorized, runs in one session, commits, and only then propagates the
// resulting change set to the index.
type Service interface {
	Activate(ctx context.Context, user auth.UserSession, profileKey string, activation RuleActivation) (*MutationResult, error)
	Deactivate(ctx context.Context, user auth.UserSession, key ActiveRuleKey) (*MutationResult, error)
	BulkActivate(ctx context.Context, user auth.UserSession, query RuleQuery, profileKey string, severity Option[Severity]) (*BulkChangeResult, error)
	BulkDeactivate(ctx context.Context, user auth.UserSession, query RuleQuery, profileKey string) (*BulkChangeResult, error)

	Backup(ctx context.Context, profileKey string, w io.Writer) error
	Restore(ctx context.Context, user auth.UserSession, r io.Reader, organization Option[string]) (*RestoreResult, error)
	RestoreBuiltInProfilesForLanguage(ctx context.Context, user auth.UserSession, language string) (*MutationResult, error)

	Delete(ctx context.Context, user auth.UserSession, profileKey string) (*MutationResult, error)
	Rename(ctx context.Context, user auth.UserSession, profileKey, newName string) error
	SetDefault(ctx context.Context, user auth.UserSession, profileKey string) error
	GetDefault(ctx context.Context, language string) (Option[Profile], error)

	SearchActiveRules(ctx context.Context, query IndexQuery) ([]ActiveRule, error)
}

// Store opens sessions against the system of record.
type Store interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Session is one unit of work. Close must always be called and rolls back
// anything not committed. A session is never shared between goroutines.
type Session interface {
	Profiles() ProfileRepository
	Rules() RuleRepository
	ActiveRules() ActiveRuleRepository

	// AfterCommit registers fn to run once Commit has succeeded.
	AfterCommit(fn func())
	Commit() error
	Close() error
}

// Repositories return (nil, nil) for absent rows.
type ProfileRepository interface {
	Get(ctx context.Context, key string) (*Profile, error)
	GetByName(ctx context.Context, organization, name, language string) (*Profile, error)
	GetDefault(ctx context.Context, language string) (*Profile, error)
	ListChildren(ctx context.Context, parentKey string) ([]Profile, error)
	Insert(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, profile *Profile) error
	ClearDefault(ctx context.Context, language string) error
	Delete(ctx context.Context, key string) error
}

type RuleRepository interface {
	Get(ctx context.Context, key RuleKey) (*Rule, error)
	ListByLanguage(ctx context.Context, language string) ([]Rule, error)
	Upsert(ctx context.Context, rule *Rule) error
}

type ActiveRuleRepository interface {
	Get(ctx context.Context, key ActiveRuleKey) (*ActiveRule, error)
	ListByProfile(ctx context.Context, profileKey string) ([]ActiveRule, error)
	Insert(ctx context.Context, ar *ActiveRule) error
	Update(ctx context.Context, ar *ActiveRule) error
	Delete(ctx context.Context, key ActiveRuleKey) error
	DeleteByProfile(ctx context.Context, profileKey string) error
}

// ActivationEngine computes change sets inside a caller-owned session.
type ActivationEngine interface {
	Activate(ctx context.Context, sess Session, activation RuleActivation, profileKey string) (ChangeSet, error)
	DeactivateInSession(ctx context.Context, sess Session, key ActiveRuleKey) (ChangeSet, error)
}

// RuleActivator is the activation engine as seen by the service. Deactivate
// commits and propagates on its own; the bulk operations commit per rule and
// leave the single aggregate propagation to the caller.
type RuleActivator interface {
	ActivationEngine
	Deactivate(ctx context.Context, key ActiveRuleKey) (*MutationResult, error)
	BulkActivate(ctx context.Context, query RuleQuery, profileKey string, severity Option[Severity]) (*BulkChangeResult, error)
	BulkDeactivate(ctx context.Context, query RuleQuery, profileKey string) (*BulkChangeResult, error)
}

type ProfileFactory interface {
	Create(ctx context.Context, sess Session, organization, name, language string) (*Profile, error)
	Delete(ctx context.Context, sess Session, key string, cascade bool) (ChangeSet, error)
	Rename(ctx context.Context, sess Session, key, newName string) error
	SetDefault(ctx context.Context, sess Session, key string) error
	GetDefault(ctx context.Context, language string) (Option[Profile], error)
}

type ProfileBackuper interface {
	Backup(ctx context.Context, profileKey string, w io.Writer) error
	Restore(ctx context.Context, sess Session, r io.Reader, organization Option[string]) (*RestoreResult, error)
}

type ProfileResetter interface {
	ResetLanguage(ctx context.Context, sess Session, language string) (ChangeSet, error)
}

// IndexWriter applies change sets to the search index. Applying the same
// change set twice leaves the index unchanged.
type IndexWriter interface {
	Index(ctx context.Context, changes ChangeSet) error
}

// ActiveRuleSearcher answers read queries against the search index.
type ActiveRuleSearcher interface {
	Search(ctx context.Context, query IndexQuery) ([]ActiveRule, error)
}

// ChangeNotifier publishes propagated change sets to downstream consumers.
type ChangeNotifier interface {
	NotifyChanges(ctx context.Context, changes ChangeSet, changedBy string) error
}

type IndexQuery struct {
	ProfileKey string
	Severity   Option[Severity]
	Limit      int
}
