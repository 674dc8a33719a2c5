package models

import "time"

const EventTypeActiveRulesChanged = "active_rules_changed"

// ActiveRuleChangeEvent announces a change set that reached the search index.
type ActiveRuleChangeEvent struct {
	EventType   string                   `json:"event_type"`
	ProfileKeys []string                 `json:"profile_keys"`
	Changes     []ActiveRuleChangeRecord `json:"changes"`
	Counts      map[string]int           `json:"counts"`
	ChangedBy   string                   `json:"changed_by,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

type ActiveRuleChangeRecord struct {
	Type       string            `json:"type"`
	ProfileKey string            `json:"profile_key"`
	RuleKey    string            `json:"rule_key"`
	Severity   string            `json:"severity,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}
