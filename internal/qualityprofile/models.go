package qualityprofile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
	SeverityBlocker  Severity = "BLOCKER"
)

var severities = []Severity{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical, SeverityBlocker}

func (s Severity) Valid() bool {
	for _, known := range severities {
		if s == known {
			return true
		}
	}
	return false
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q (allowed: INFO, MINOR, MAJOR, CRITICAL, BLOCKER)", s)
	}
	return sev, nil
}

// Profile is a named, language-scoped set of activated rules.
type Profile struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Language     string         `json:"language"`
	Organization string         `json:"organization"`
	IsDefault    bool           `json:"is_default"`
	ParentKey    Option[string] `json:"parent_key"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RuleKey is "<repository>:<rule>", e.g. "java:S1234".
type RuleKey string

func NewRuleKey(repository, rule string) RuleKey {
	return RuleKey(repository + ":" + rule)
}

func (k RuleKey) Repository() string {
	repo, _, _ := strings.Cut(string(k), ":")
	return repo
}

func (k RuleKey) Rule() string {
	_, rule, found := strings.Cut(string(k), ":")
	if !found {
		return string(k)
	}
	return rule
}

func (k RuleKey) Valid() bool {
	repo, rule, found := strings.Cut(string(k), ":")
	return found && repo != "" && rule != ""
}

type RuleStatus string

const (
	RuleStatusReady      RuleStatus = "READY"
	RuleStatusDeprecated RuleStatus = "DEPRECATED"
	RuleStatusRemoved    RuleStatus = "REMOVED"
)

type ParamType string

const (
	ParamTypeString  ParamType = "STRING"
	ParamTypeText    ParamType = "TEXT"
	ParamTypeInteger ParamType = "INTEGER"
	ParamTypeFloat   ParamType = "FLOAT"
	ParamTypeBoolean ParamType = "BOOLEAN"
)

type RuleParam struct {
	Name         string         `json:"name"`
	Type         ParamType      `json:"type"`
	DefaultValue Option[string] `json:"default_value"`
	Description  string         `json:"description,omitempty"`
}

// Rule is read-only from the point of view of profile mutations.
type Rule struct {
	Key      RuleKey     `json:"key"`
	Name     string      `json:"name"`
	Language string      `json:"language"`
	Severity Severity    `json:"severity"`
	Status   RuleStatus  `json:"status"`
	Tags     []string    `json:"tags,omitempty"`
	Params   []RuleParam `json:"params,omitempty"`
}

func (r *Rule) Param(name string) (RuleParam, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p, true
		}
	}
	return RuleParam{}, false
}

type ActiveRuleKey struct {
	ProfileKey string  `json:"profile_key"`
	RuleKey    RuleKey `json:"rule_key"`
}

func NewActiveRuleKey(profileKey string, ruleKey RuleKey) ActiveRuleKey {
	return ActiveRuleKey{ProfileKey: profileKey, RuleKey: ruleKey}
}

func (k ActiveRuleKey) String() string {
	return k.ProfileKey + ":" + string(k.RuleKey)
}

// ParseActiveRuleKey parses "<profile>:<repository>:<rule>".
func ParseActiveRuleKey(s string) (ActiveRuleKey, error) {
	profile, rule, found := strings.Cut(s, ":")
	if !found || profile == "" || !RuleKey(rule).Valid() {
		return ActiveRuleKey{}, fmt.Errorf("invalid active rule key %q", s)
	}
	return NewActiveRuleKey(profile, RuleKey(rule)), nil
}

// ActiveRule binds one rule to one profile.
type ActiveRule struct {
	Key       ActiveRuleKey     `json:"key"`
	Severity  Severity          `json:"severity"`
	Params    map[string]string `json:"params"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RuleActivation asks for a rule to be activated, or updated when it is
// already active. Absent severity keeps the current one (or the rule default).
type RuleActivation struct {
	RuleKey  RuleKey
	Severity Option[Severity]
	Params   map[string]string
}

func sortedParamNames(params map[string]string) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func paramsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
