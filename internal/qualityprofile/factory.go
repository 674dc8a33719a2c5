package qualityprofile

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"qprofile/internal/constants"
	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

// Factory creates, deletes, renames and elects default profiles.
type Factory struct {
	store  Store
	cache  DefaultProfileCache
	logger logger.Logger
	now    func() time.Time
}

func NewFactory(store Store, cache DefaultProfileCache, log logger.Logger) *Factory {
	if cache == nil {
		cache = NoopDefaultCache()
	}
	return &Factory{store: store, cache: cache, logger: log, now: time.Now}
}

func (f *Factory) Create(ctx context.Context, sess Session, organization, name, language string) (*Profile, error) {
	name, err := validateProfileName(name)
	if err != nil {
		return nil, err
	}
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("language is required")
	}

	existing, err := sess.Profiles().GetByName(ctx, organization, name, language)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.ErrConflict.WithMessage("quality profile %q already exists for language %s", name, language)
	}

	now := f.now().UTC()
	profile := &Profile{
		Key:          newProfileKey(language, name),
		Name:         name,
		Language:     language,
		Organization: organization,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := sess.Profiles().Insert(ctx, profile); err != nil {
		return nil, err
	}

	f.logger.InfowCtx(ctx, "Quality profile created",
		"profile_key", profile.Key,
		"name", name,
		"language", language,
	)
	return profile, nil
}

// Delete removes a profile and its active rules, returning one DEACTIVATED
// change per active rule. The default profile of a language is protected, as
// are profiles with children unless cascade is set.
func (f *Factory) Delete(ctx context.Context, sess Session, key string, cascade bool) (ChangeSet, error) {
	profile, err := sess.Profiles().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", key)
	}
	if profile.IsDefault {
		return nil, pkgerrors.ErrConflict.WithMessage("quality profile %q is the default for %s and cannot be deleted", profile.Name, profile.Language)
	}

	changes := ChangeSet{}

	children, err := sess.Profiles().ListChildren(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		if !cascade {
			return nil, pkgerrors.ErrConflict.WithMessage("quality profile %q has %d child profiles", profile.Name, len(children))
		}
		for _, child := range children {
			childChanges, err := f.Delete(ctx, sess, child.Key, true)
			if err != nil {
				return nil, err
			}
			changes = changes.Merge(childChanges)
		}
	}

	activeRules, err := sess.ActiveRules().ListByProfile(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, ar := range activeRules {
		changes = append(changes, NewDeactivatedChange(ar.Key))
	}

	if err := sess.ActiveRules().DeleteByProfile(ctx, key); err != nil {
		return nil, err
	}
	if err := sess.Profiles().Delete(ctx, key); err != nil {
		return nil, err
	}

	language := profile.Language
	sess.AfterCommit(func() { f.cache.Invalidate(context.WithoutCancel(ctx), language) })
	return changes, nil
}

func (f *Factory) Rename(ctx context.Context, sess Session, key, newName string) error {
	newName, err := validateProfileName(newName)
	if err != nil {
		return err
	}

	profile, err := sess.Profiles().Get(ctx, key)
	if err != nil {
		return err
	}
	if profile == nil {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", key)
	}
	if profile.Name == newName {
		return nil
	}

	existing, err := sess.Profiles().GetByName(ctx, profile.Organization, newName, profile.Language)
	if err != nil {
		return err
	}
	if existing != nil {
		return pkgerrors.ErrConflict.WithMessage("quality profile %q already exists for language %s", newName, profile.Language)
	}

	profile.Name = newName
	profile.UpdatedAt = f.now().UTC()
	if err := sess.Profiles().Update(ctx, profile); err != nil {
		return err
	}

	if profile.IsDefault {
		language := profile.Language
		sess.AfterCommit(func() { f.cache.Invalidate(context.WithoutCancel(ctx), language) })
	}
	return nil
}

// SetDefault makes key the default of its language, clearing the previous
// default in the same session.
func (f *Factory) SetDefault(ctx context.Context, sess Session, key string) error {
	profile, err := sess.Profiles().Get(ctx, key)
	if err != nil {
		return err
	}
	if profile == nil {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", key)
	}
	if profile.IsDefault {
		return nil
	}

	if err := sess.Profiles().ClearDefault(ctx, profile.Language); err != nil {
		return err
	}
	profile.IsDefault = true
	profile.UpdatedAt = f.now().UTC()
	if err := sess.Profiles().Update(ctx, profile); err != nil {
		return err
	}

	language := profile.Language
	sess.AfterCommit(func() { f.cache.Invalidate(context.WithoutCancel(ctx), language) })
	return nil
}

// GetDefault returns None when the language has no default profile.
func (f *Factory) GetDefault(ctx context.Context, language string) (Option[Profile], error) {
	if cached, ok := f.cache.Get(ctx, language); ok {
		return Some(*cached), nil
	}
	generation := f.cache.Generation(ctx, language)

	sess, err := f.store.OpenSession(ctx)
	if err != nil {
		return None[Profile](), err
	}
	defer sess.Close()

	profile, err := sess.Profiles().GetDefault(ctx, language)
	if err != nil {
		return None[Profile](), err
	}
	if profile == nil {
		return None[Profile](), nil
	}

	f.cache.Set(ctx, *profile, generation)
	return Some(*profile), nil
}

func validateProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.ErrValidation.WithMessage("profile name is required")
	}
	if len([]rune(name)) > constants.MaxProfileNameLength {
		return "", pkgerrors.ErrValidation.WithMessage("profile name must not exceed %d characters", constants.MaxProfileNameLength)
	}
	return name, nil
}

// newProfileKey builds "<language>-<slug>-<random>", e.g. "java-sonar-way-1f3a9c2e".
func newProfileKey(language, name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	return fmt.Sprintf("%s-%s-%s", language, slug, uuid.NewString()[:8])
}
