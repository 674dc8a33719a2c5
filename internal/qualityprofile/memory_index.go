package qualityprofile

import (
	"context"
	"sort"
	"sync"
)

// MemoryActiveRuleIndex is an in-process search index, used when MongoDB is
// not configured.
type MemoryActiveRuleIndex struct {
	mu      sync.RWMutex
	docs    map[string]ActiveRule
	failErr error
	writes  int
}

func NewMemoryActiveRuleIndex() *MemoryActiveRuleIndex {
	return &MemoryActiveRuleIndex{docs: map[string]ActiveRule{}}
}

// FailWith makes every following Index call fail with err until called with
// nil.
func (m *MemoryActiveRuleIndex) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Writes returns the number of Index calls that reached the index.
func (m *MemoryActiveRuleIndex) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryActiveRuleIndex) Index(_ context.Context, changes ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.failErr != nil {
		return m.failErr
	}
	for _, c := range changes {
		id := c.Key.String()
		if c.Type == ChangeDeactivated {
			delete(m.docs, id)
			continue
		}
		m.docs[id] = ActiveRule{
			Key:      c.Key,
			Severity: c.Severity.OrElse(""),
			Params:   copyParams(c.Params),
		}
	}
	return nil
}

func (m *MemoryActiveRuleIndex) Search(_ context.Context, query IndexQuery) ([]ActiveRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sev, filterSeverity := query.Severity.Get()
	out := []ActiveRule{}
	for _, ar := range m.docs {
		if ar.Key.ProfileKey != query.ProfileKey {
			continue
		}
		if filterSeverity && ar.Severity != sev {
			continue
		}
		ar.Params = copyParams(ar.Params)
		out = append(out, ar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.RuleKey < out[j].Key.RuleKey })
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *MemoryActiveRuleIndex) DeleteProfile(_ context.Context, profileKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, ar := range m.docs {
		if ar.Key.ProfileKey == profileKey {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}
