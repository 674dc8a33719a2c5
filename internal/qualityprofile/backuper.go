package qualityprofile

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"qprofile/internal/logger"
	pkgerrors "qprofile/pkg/errors"
)

type backupProfile struct {
	XMLName  xml.Name     `xml:"profile"`
	Name     string       `xml:"name"`
	Language string       `xml:"language"`
	Rules    []backupRule `xml:"rules>rule"`
}

type backupRule struct {
	RepositoryKey string        `xml:"repositoryKey"`
	Key           string        `xml:"key"`
	Priority      string        `xml:"priority"`
	Parameters    []backupParam `xml:"parameters>parameter,omitempty"`
}

type backupParam struct {
	Key   string `xml:"key"`
	Value string `xml:"value"`
}

// Backuper exports profiles as XML documents and replays them.
type Backuper struct {
	store               Store
	engine              ActivationEngine
	factory             ProfileFactory
	defaultOrganization string
	logger              logger.Logger
}

func NewBackuper(store Store, engine ActivationEngine, factory ProfileFactory, defaultOrganization string, log logger.Logger) *Backuper {
	return &Backuper{
		store:               store,
		engine:              engine,
		factory:             factory,
		defaultOrganization: defaultOrganization,
		logger:              log,
	}
}

func (b *Backuper) Backup(ctx context.Context, profileKey string, w io.Writer) error {
	sess, err := b.store.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	profile, err := sess.Profiles().Get(ctx, profileKey)
	if err != nil {
		return err
	}
	if profile == nil {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", profileKey)
	}

	activeRules, err := sess.ActiveRules().ListByProfile(ctx, profileKey)
	if err != nil {
		return err
	}

	doc := backupProfile{Name: profile.Name, Language: profile.Language}
	for _, ar := range activeRules {
		rule := backupRule{
			RepositoryKey: ar.Key.RuleKey.Repository(),
			Key:           ar.Key.RuleKey.Rule(),
			Priority:      string(ar.Severity),
		}
		for _, name := range sortedParamNames(ar.Params) {
			rule.Parameters = append(rule.Parameters, backupParam{Key: name, Value: ar.Params[name]})
		}
		doc.Rules = append(doc.Rules, rule)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}

// Restore replays a backup into the profile it names, creating the profile
// when it does not exist. The profile ends up with exactly the rules of the
// document; rules unknown to the installation are skipped.
func (b *Backuper) Restore(ctx context.Context, sess Session, r io.Reader, organization Option[string]) (*RestoreResult, error) {
	var doc backupProfile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, pkgerrors.ErrValidation.WithMessage("invalid backup document: %v", err)
	}

	name := strings.TrimSpace(doc.Name)
	language := strings.TrimSpace(doc.Language)
	if name == "" || language == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("backup document must declare a profile name and language")
	}

	activations := make([]RuleActivation, 0, len(doc.Rules))
	for _, br := range doc.Rules {
		ruleKey := NewRuleKey(strings.TrimSpace(br.RepositoryKey), strings.TrimSpace(br.Key))
		if !ruleKey.Valid() {
			return nil, pkgerrors.ErrValidation.WithMessage("invalid rule key %q in backup", ruleKey)
		}
		severity, err := ParseSeverity(br.Priority)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithMessage("rule %s: %v", ruleKey, err)
		}
		params := make(map[string]string, len(br.Parameters))
		for _, p := range br.Parameters {
			params[p.Key] = p.Value
		}
		activations = append(activations, RuleActivation{RuleKey: ruleKey, Severity: Some(severity), Params: params})
	}

	org := organization.OrElse(b.defaultOrganization)
	profile, err := sess.Profiles().GetByName(ctx, org, name, language)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile, err = b.factory.Create(ctx, sess, org, name, language)
		if err != nil {
			return nil, err
		}
	}

	changes, skipped, err := replaceActiveRules(ctx, sess, b.engine, profile.Key, activations)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		b.logger.WarnwCtx(ctx, "Backup references unknown rules, skipped",
			"profile_key", profile.Key,
			"rules", skipped,
		)
	}

	return &RestoreResult{Profile: *profile, Changes: changes, SkippedRules: skipped}, nil
}
