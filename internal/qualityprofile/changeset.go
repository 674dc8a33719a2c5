package qualityprofile

import (
	"sort"
	"sync"
)

type ChangeType string

const (
	ChangeActivated   ChangeType = "ACTIVATED"
	ChangeUpdated     ChangeType = "UPDATED"
	ChangeDeactivated ChangeType = "DEACTIVATED"
)

// ActiveRuleChange is one transition of an active rule. Severity and Params
// are absent for DEACTIVATED.
type ActiveRuleChange struct {
	Type     ChangeType        `json:"type"`
	Key      ActiveRuleKey     `json:"key"`
	Severity Option[Severity]  `json:"severity"`
	Params   map[string]string `json:"params,omitempty"`
}

func NewActivatedChange(ar ActiveRule) ActiveRuleChange {
	return ActiveRuleChange{
		Type:     ChangeActivated,
		Key:      ar.Key,
		Severity: Some(ar.Severity),
		Params:   copyParams(ar.Params),
	}
}

func NewUpdatedChange(ar ActiveRule) ActiveRuleChange {
	c := NewActivatedChange(ar)
	c.Type = ChangeUpdated
	return c
}

func NewDeactivatedChange(key ActiveRuleKey) ActiveRuleChange {
	return ActiveRuleChange{Type: ChangeDeactivated, Key: key}
}

// ChangeSet is the ordered list of transitions produced by one mutation.
// It is consumed once by index propagation and never persisted.
type ChangeSet []ActiveRuleChange

func (cs ChangeSet) IsEmpty() bool {
	return len(cs) == 0
}

func (cs ChangeSet) Merge(other ChangeSet) ChangeSet {
	if len(other) == 0 {
		return cs
	}
	out := make(ChangeSet, 0, len(cs)+len(other))
	out = append(out, cs...)
	return append(out, other...)
}

func (cs ChangeSet) CountByType() map[ChangeType]int {
	counts := make(map[ChangeType]int, 3)
	for _, c := range cs {
		counts[c.Type]++
	}
	return counts
}

func (cs ChangeSet) ProfileKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, c := range cs {
		if !seen[c.Key.ProfileKey] {
			seen[c.Key.ProfileKey] = true
			keys = append(keys, c.Key.ProfileKey)
		}
	}
	return keys
}

// SortByKey orders changes by active rule key, keeping the relative order of
// changes that share a key.
func (cs ChangeSet) SortByKey() {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Key.String() < cs[j].Key.String()
	})
}

// MutationResult is returned by every mutation that produces a change set.
// IndexStale is set when the mutation is durable but the index write failed.
type MutationResult struct {
	Changes    ChangeSet `json:"changes"`
	IndexStale bool      `json:"index_stale"`
	IndexError error     `json:"-"`
}

// BulkChangeResult aggregates the outcome of a bulk activation or
// deactivation. Per-rule failures are counted, not raised.
type BulkChangeResult struct {
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Changes    ChangeSet `json:"changes"`
	Errors     []string  `json:"errors,omitempty"`
	IndexStale bool      `json:"index_stale"`

	mu sync.Mutex
}

func (r *BulkChangeResult) addSuccess(changes ChangeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded++
	r.Changes = r.Changes.Merge(changes)
}

func (r *BulkChangeResult) addFailure(ruleKey RuleKey, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Errors = append(r.Errors, string(ruleKey)+": "+err.Error())
}

// RestoreResult describes a restored backup.
type RestoreResult struct {
	Profile      Profile   `json:"profile"`
	Changes      ChangeSet `json:"changes"`
	SkippedRules []RuleKey `json:"skipped_rules,omitempty"`
	IndexStale   bool      `json:"index_stale"`
}
