package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeRuleCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"budget_confirmed", "budget_confirmed"},
		{"  Budget Confirmed ", "budget_confirmed"},
		{"No-Reply (3d)", "no_reply_3d"},
		{"___x___", "x"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeRuleCode(tt.in); got != tt.want {
			t.Errorf("NormalizeRuleCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultRulesCatalog(t *testing.T) {
	rs := DefaultRules()
	if got := len(rs.Rules()); got != 18 {
		t.Fatalf("catalog has %d rules, want 18", got)
	}

	tests := []struct {
		code  string
		delta int
	}{
		{"whatsapp_reply", 8},
		{"meeting_attended", 18},
		{"budget_confirmed", 15},
		{"no_reply_14d", -20},
		{"lost_interest", -18},
	}
	for _, tt := range tests {
		rule, ok := rs.Lookup(tt.code)
		if !ok {
			t.Errorf("rule %q missing", tt.code)
			continue
		}
		if rule.Delta != tt.delta {
			t.Errorf("rule %q delta = %d, want %d", tt.code, rule.Delta, tt.delta)
		}
	}

	if _, ok := rs.Lookup("unknown_rule"); ok {
		t.Error("unknown rule resolved")
	}
}

func TestDefaultRuleSignalPatches(t *testing.T) {
	rs := DefaultRules()

	budget, _ := rs.Lookup("budget_confirmed")
	if budget.Signals.BudgetConfirmed == nil || !*budget.Signals.BudgetConfirmed {
		t.Error("budget_confirmed does not set budget signal")
	}
	if budget.Signals.TimelineConfirmed != nil || budget.Signals.NeedConfirmed != nil {
		t.Error("budget_confirmed touches unrelated signals")
	}

	noBudget, _ := rs.Lookup("no_budget_now")
	if noBudget.Signals.BudgetConfirmed == nil || *noBudget.Signals.BudgetConfirmed {
		t.Error("no_budget_now does not clear budget signal")
	}

	lost, _ := rs.Lookup("lost_interest")
	if lost.Signals.NeedConfirmed == nil || *lost.Signals.NeedConfirmed ||
		lost.Signals.TimelineConfirmed == nil || *lost.Signals.TimelineConfirmed {
		t.Error("lost_interest does not clear need and timeline")
	}
	if lost.Signals.BudgetConfirmed != nil {
		t.Error("lost_interest touches budget signal")
	}

	plain, _ := rs.Lookup("whatsapp_reply")
	if !plain.Signals.IsZero() {
		t.Error("whatsapp_reply carries a signal patch")
	}
}

func TestLookupNormalizesCode(t *testing.T) {
	rs := DefaultRules()
	if _, ok := rs.Lookup("  Budget Confirmed "); !ok {
		t.Error("lookup with unnormalized code failed")
	}
}

func TestRuleDirection(t *testing.T) {
	if (Rule{Delta: 5}).Direction() != "up" {
		t.Error("positive delta should be up")
	}
	if (Rule{Delta: -5}).Direction() != "down" {
		t.Error("negative delta should be down")
	}
}

func TestLoadRulesMergesOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - code: whatsapp_reply
    label: Replied on messaging channel
    delta: 11
  - code: site_visit
    label: Visited the site
    delta: 7
    signals:
      need_confirmed: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	overridden, ok := rs.Lookup("whatsapp_reply")
	if !ok || overridden.Delta != 11 || overridden.Label != "Replied on messaging channel" {
		t.Errorf("override not applied: %+v", overridden)
	}

	added, ok := rs.Lookup("site_visit")
	if !ok {
		t.Fatal("new rule missing")
	}
	if added.Delta != 7 {
		t.Errorf("site_visit delta = %d", added.Delta)
	}
	if added.Signals.NeedConfirmed == nil || !*added.Signals.NeedConfirmed {
		t.Error("site_visit signal patch missing")
	}
	if added.EventType != "site_visit" {
		t.Errorf("event_type defaulted to %q", added.EventType)
	}

	// Untouched built-ins survive the merge.
	if _, ok := rs.Lookup("no_reply_7d"); !ok {
		t.Error("built-in rule lost after merge")
	}
	if got := len(rs.Rules()); got != 19 {
		t.Errorf("catalog has %d rules, want 19", got)
	}
}

func TestLoadRulesEmptyPathUsesDefaults(t *testing.T) {
	rs, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if got := len(rs.Rules()); got != 18 {
		t.Errorf("catalog has %d rules, want 18", got)
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
