package domain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one named CRM event with a score delta and an optional patch to
// the qualification signals.
type Rule struct {
	Code      string      `yaml:"code" json:"code"`
	Label     string      `yaml:"label" json:"label"`
	EventType string      `yaml:"event_type" json:"event_type"`
	Delta     int         `yaml:"delta" json:"delta"`
	Signals   SignalPatch `yaml:"-" json:"-"`

	// SignalsYAML is the override-file shape of Signals; only the keys
	// present in the file patch anything.
	SignalsYAML map[string]bool `yaml:"signals" json:"-"`
}

// Direction labels the delta sign for catalog consumers.
func (r Rule) Direction() string {
	if r.Delta >= 0 {
		return "up"
	}
	return "down"
}

// NormalizeRuleCode canonicalizes a rule code: lowercased, any run of
// non-alphanumeric characters collapsed to a single underscore, leading
// and trailing underscores dropped.
func NormalizeRuleCode(raw string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

func boolPtr(v bool) *bool { return &v }

func defaultRules() []Rule {
	return []Rule{
		{Code: "whatsapp_reply", Label: "Replied on WhatsApp", Delta: 8},
		{Code: "asked_price", Label: "Asked for pricing", Delta: 12},
		{Code: "proposal_click", Label: "Clicked the proposal", Delta: 10},
		{Code: "meeting_scheduled", Label: "Scheduled a meeting", Delta: 15},
		{Code: "meeting_attended", Label: "Attended the meeting", Delta: 18},
		{Code: "budget_confirmed", Label: "Confirmed budget", Delta: 15,
			Signals: SignalPatch{BudgetConfirmed: boolPtr(true)}},
		{Code: "timeline_confirmed", Label: "Confirmed timeline", Delta: 10,
			Signals: SignalPatch{TimelineConfirmed: boolPtr(true)}},
		{Code: "need_confirmed", Label: "Confirmed need", Delta: 10,
			Signals: SignalPatch{NeedConfirmed: boolPtr(true)}},
		{Code: "proposal_requested", Label: "Requested a formal proposal", Delta: 12},
		{Code: "sent_documents", Label: "Sent documents", Delta: 9},
		{Code: "followup_positive", Label: "Positive follow-up reply", Delta: 6},
		{Code: "no_reply_3d", Label: "No reply for 3 days", Delta: -6},
		{Code: "no_reply_7d", Label: "No reply for 7 days", Delta: -12},
		{Code: "no_reply_14d", Label: "No reply for 14 days", Delta: -20},
		{Code: "postponed_no_date", Label: "Postponed without a new date", Delta: -12},
		{Code: "no_budget_now", Label: "No budget right now", Delta: -20,
			Signals: SignalPatch{BudgetConfirmed: boolPtr(false)}},
		{Code: "lost_interest", Label: "Went cold without reply", Delta: -18,
			Signals: SignalPatch{NeedConfirmed: boolPtr(false), TimelineConfirmed: boolPtr(false)}},
		{Code: "invalid_contact", Label: "Invalid contact details", Delta: -8},
	}
}

// RuleSet is an ordered collection of rules with code lookup.
type RuleSet struct {
	rules  []Rule
	byCode map[string]Rule
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleSet {
	return newRuleSet(defaultRules())
}

func newRuleSet(rules []Rule) *RuleSet {
	rs := &RuleSet{byCode: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		normalized, ok := normalizeRule(r)
		if !ok {
			continue
		}
		if _, exists := rs.byCode[normalized.Code]; exists {
			continue
		}
		rs.byCode[normalized.Code] = normalized
		rs.rules = append(rs.rules, normalized)
	}
	return rs
}

func normalizeRule(r Rule) (Rule, bool) {
	r.Code = NormalizeRuleCode(r.Code)
	if r.Code == "" {
		return Rule{}, false
	}
	if r.Label = strings.TrimSpace(r.Label); r.Label == "" {
		r.Label = r.Code
	}
	if r.EventType = strings.TrimSpace(r.EventType); r.EventType == "" {
		r.EventType = r.Code
	}
	if r.SignalsYAML != nil {
		patch := SignalPatch{}
		if v, ok := r.SignalsYAML["budget_confirmed"]; ok {
			patch.BudgetConfirmed = boolPtr(v)
		}
		if v, ok := r.SignalsYAML["timeline_confirmed"]; ok {
			patch.TimelineConfirmed = boolPtr(v)
		}
		if v, ok := r.SignalsYAML["need_confirmed"]; ok {
			patch.NeedConfirmed = boolPtr(v)
		}
		r.Signals = patch
		r.SignalsYAML = nil
	}
	return r, true
}

// Lookup finds a rule by (normalized) code.
func (rs *RuleSet) Lookup(code string) (Rule, bool) {
	r, ok := rs.byCode[NormalizeRuleCode(code)]
	return r, ok
}

// Rules returns the catalog in table order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Codes lists the accepted rule codes, sorted. Used in error responses
// when a caller submits an unknown code.
func (rs *RuleSet) Codes() []string {
	codes := make([]string, 0, len(rs.byCode))
	for code := range rs.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ruleFile is the YAML override file shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules builds the rule set from the built-in table merged with an
// optional YAML override file. File entries replace built-in rules with
// the same code and append new ones; table order is preserved for
// overridden rules. An empty path returns the defaults.
func LoadRules(path string) (*RuleSet, error) {
	base := defaultRules()
	if path == "" {
		return newRuleSet(base), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	overrides := make(map[string]Rule, len(file.Rules))
	var extra []Rule
	for _, r := range file.Rules {
		normalized, ok := normalizeRule(r)
		if !ok {
			continue
		}
		overrides[normalized.Code] = normalized
	}

	merged := make([]Rule, 0, len(base)+len(file.Rules))
	seen := make(map[string]bool, len(base))
	for _, r := range base {
		if override, ok := overrides[r.Code]; ok {
			merged = append(merged, override)
		} else {
			merged = append(merged, r)
		}
		seen[r.Code] = true
	}
	for _, r := range file.Rules {
		normalized, ok := normalizeRule(r)
		if !ok || seen[normalized.Code] {
			continue
		}
		extra = append(extra, normalized)
		seen[normalized.Code] = true
	}
	merged = append(merged, extra...)

	return newRuleSet(merged), nil
}
