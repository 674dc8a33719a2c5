package qualityprofile

import (
	"context"
	"errors"
	"sort"
	"sync"

	pkgerrors "qprofile/pkg/errors"
)

var errSessionClosed = errors.New("session closed")

// MemoryStore is an in-memory system of record. Sessions are serialized:
// opening one blocks until the previous session is closed. Each session works
// on a private copy of the state that replaces the shared state on Commit.
type MemoryStore struct {
	mu        sync.Mutex
	state     memoryState
	commitErr error
	failMu    sync.Mutex
}

type memoryState struct {
	profiles    map[string]Profile
	rules       map[RuleKey]Rule
	activeRules map[ActiveRuleKey]ActiveRule
}

func newMemoryState() memoryState {
	return memoryState{
		profiles:    map[string]Profile{},
		rules:       map[RuleKey]Rule{},
		activeRules: map[ActiveRuleKey]ActiveRule{},
	}
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		profiles:    make(map[string]Profile, len(st.profiles)),
		rules:       make(map[RuleKey]Rule, len(st.rules)),
		activeRules: make(map[ActiveRuleKey]ActiveRule, len(st.activeRules)),
	}
	for k, v := range st.profiles {
		out.profiles[k] = v
	}
	for k, v := range st.rules {
		out.rules[k] = cloneRule(v)
	}
	for k, v := range st.activeRules {
		out.activeRules[k] = cloneActiveRule(v)
	}
	return out
}

func cloneRule(r Rule) Rule {
	r.Tags = append([]string(nil), r.Tags...)
	r.Params = append([]RuleParam(nil), r.Params...)
	return r
}

func cloneActiveRule(ar ActiveRule) ActiveRule {
	ar.Params = copyParams(ar.Params)
	return ar
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// FailCommits makes every following Commit fail with err until called with
// nil.
func (s *MemoryStore) FailCommits(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.commitErr = err
}

func (s *MemoryStore) OpenSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memorySession{store: s, state: s.state.clone()}, nil
}

type memorySession struct {
	store     *MemoryStore
	state     memoryState
	hooks     []func()
	committed bool
	closed    bool
}

func (m *memorySession) Profiles() ProfileRepository {
	return memoryProfiles{m}
}

func (m *memorySession) Rules() RuleRepository {
	return memoryRules{m}
}

func (m *memorySession) ActiveRules() ActiveRuleRepository {
	return memoryActiveRules{m}
}

func (m *memorySession) AfterCommit(fn func()) {
	m.hooks = append(m.hooks, fn)
}

func (m *memorySession) Commit() error {
	if m.closed || m.committed {
		return errSessionClosed
	}

	m.store.failMu.Lock()
	commitErr := m.store.commitErr
	m.store.failMu.Unlock()
	if commitErr != nil {
		return commitErr
	}

	m.store.state = m.state
	m.committed = true
	for _, fn := range m.hooks {
		fn()
	}
	return nil
}

func (m *memorySession) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.store.mu.Unlock()
	return nil
}

type memoryProfiles struct{ s *memorySession }

func (r memoryProfiles) Get(_ context.Context, key string) (*Profile, error) {
	if p, ok := r.s.state.profiles[key]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r memoryProfiles) GetByName(_ context.Context, organization, name, language string) (*Profile, error) {
	for _, p := range r.s.state.profiles {
		if p.Organization == organization && p.Name == name && p.Language == language {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r memoryProfiles) GetDefault(_ context.Context, language string) (*Profile, error) {
	for _, p := range r.s.state.profiles {
		if p.Language == language && p.IsDefault {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r memoryProfiles) ListChildren(_ context.Context, parentKey string) ([]Profile, error) {
	var out []Profile
	for _, p := range r.s.state.profiles {
		if parent, ok := p.ParentKey.Get(); ok && parent == parentKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r memoryProfiles) Insert(_ context.Context, profile *Profile) error {
	if _, exists := r.s.state.profiles[profile.Key]; exists {
		return pkgerrors.ErrConflict.WithMessage("quality profile %q already exists", profile.Key)
	}
	if err := r.checkUnique(*profile); err != nil {
		return err
	}
	r.s.state.profiles[profile.Key] = *profile
	return nil
}

func (r memoryProfiles) Update(_ context.Context, profile *Profile) error {
	if _, exists := r.s.state.profiles[profile.Key]; !exists {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", profile.Key)
	}
	if err := r.checkUnique(*profile); err != nil {
		return err
	}
	r.s.state.profiles[profile.Key] = *profile
	return nil
}

// checkUnique mirrors the unique constraints of the relational schema.
func (r memoryProfiles) checkUnique(profile Profile) error {
	for key, p := range r.s.state.profiles {
		if key == profile.Key || p.Language != profile.Language {
			continue
		}
		if p.Organization == profile.Organization && p.Name == profile.Name {
			return pkgerrors.ErrConflict.WithMessage("quality profile %q already exists for language %s", profile.Name, profile.Language)
		}
		if p.IsDefault && profile.IsDefault {
			return pkgerrors.ErrConflict.WithMessage("language %s already has a default profile", profile.Language)
		}
	}
	return nil
}

func (r memoryProfiles) ClearDefault(_ context.Context, language string) error {
	for key, p := range r.s.state.profiles {
		if p.Language == language && p.IsDefault {
			p.IsDefault = false
			r.s.state.profiles[key] = p
		}
	}
	return nil
}

func (r memoryProfiles) Delete(_ context.Context, key string) error {
	delete(r.s.state.profiles, key)
	for arKey := range r.s.state.activeRules {
		if arKey.ProfileKey == key {
			delete(r.s.state.activeRules, arKey)
		}
	}
	return nil
}

type memoryRules struct{ s *memorySession }

func (r memoryRules) Get(_ context.Context, key RuleKey) (*Rule, error) {
	if rule, ok := r.s.state.rules[key]; ok {
		rule = cloneRule(rule)
		return &rule, nil
	}
	return nil, nil
}

func (r memoryRules) ListByLanguage(_ context.Context, language string) ([]Rule, error) {
	var out []Rule
	for _, rule := range r.s.state.rules {
		if rule.Language == language {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r memoryRules) Upsert(_ context.Context, rule *Rule) error {
	r.s.state.rules[rule.Key] = cloneRule(*rule)
	return nil
}

type memoryActiveRules struct{ s *memorySession }

func (r memoryActiveRules) Get(_ context.Context, key ActiveRuleKey) (*ActiveRule, error) {
	if ar, ok := r.s.state.activeRules[key]; ok {
		ar = cloneActiveRule(ar)
		return &ar, nil
	}
	return nil, nil
}

func (r memoryActiveRules) ListByProfile(_ context.Context, profileKey string) ([]ActiveRule, error) {
	var out []ActiveRule
	for key, ar := range r.s.state.activeRules {
		if key.ProfileKey == profileKey {
			out = append(out, cloneActiveRule(ar))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.RuleKey < out[j].Key.RuleKey })
	return out, nil
}

func (r memoryActiveRules) Insert(_ context.Context, ar *ActiveRule) error {
	if _, exists := r.s.state.activeRules[ar.Key]; exists {
		return pkgerrors.ErrConflict.WithMessage("rule %s is already active in %s", ar.Key.RuleKey, ar.Key.ProfileKey)
	}
	if _, ok := r.s.state.profiles[ar.Key.ProfileKey]; !ok {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", ar.Key.ProfileKey)
	}
	r.s.state.activeRules[ar.Key] = cloneActiveRule(*ar)
	return nil
}

func (r memoryActiveRules) Update(_ context.Context, ar *ActiveRule) error {
	if _, exists := r.s.state.activeRules[ar.Key]; !exists {
		return pkgerrors.ErrNotFound.WithMessage("rule %s is not active in %s", ar.Key.RuleKey, ar.Key.ProfileKey)
	}
	r.s.state.activeRules[ar.Key] = cloneActiveRule(*ar)
	return nil
}

func (r memoryActiveRules) Delete(_ context.Context, key ActiveRuleKey) error {
	delete(r.s.state.activeRules, key)
	return nil
}

func (r memoryActiveRules) DeleteByProfile(_ context.Context, profileKey string) error {
	for key := range r.s.state.activeRules {
		if key.ProfileKey == profileKey {
			delete(r.s.state.activeRules, key)
		}
	}
	return nil
}
