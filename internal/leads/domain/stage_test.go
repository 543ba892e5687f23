package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func allSignals() Signals {
	return Signals{BudgetConfirmed: true, TimelineConfirmed: true, NeedConfirmed: true}
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"inbox", StageInbox},
		{" Warming ", StageWarming},
		{"QUALIFIED", StageQualified},
		{"sent", StageSent},
		{"nonsense", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseStage(tt.in); got != tt.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-10, 0},
		{0, 0},
		{39.4, 39},
		{39.5, 40},
		{100, 100},
		{140, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBandsAreContiguousAndExhaustive(t *testing.T) {
	for score := 0; score <= 100; score++ {
		b := BandFor(score)
		if score < b.Min || score > b.Max {
			t.Fatalf("score %d mapped to band [%d,%d]", score, b.Min, b.Max)
		}
	}
	if BandFor(0).Stage != StageInbox {
		t.Error("score 0 not in inbox band")
	}
	if BandFor(39).Stage != StageInbox || BandFor(40).Stage != StageWarming {
		t.Error("inbox/warming boundary wrong")
	}
	if BandFor(69).Stage != StageWarming || BandFor(70).Stage != StageQualified {
		t.Error("warming/qualified boundary wrong")
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		signals  Signals
		keepSent bool
		want     Transition
	}{
		{
			"low band reports gate closed",
			20, Signals{}, false,
			Transition{Score: 20, Stage: StageInbox, Status: StatusCurious, GateOpen: false,
				MissingSignals: []string{"budget", "timeline", "need"}},
		},
		{
			"mid band reports gate closed",
			55, Signals{}, false,
			Transition{Score: 55, Stage: StageWarming, Status: StatusWarming, GateOpen: false,
				MissingSignals: []string{"budget", "timeline", "need"}},
		},
		{
			"mid band lists only the unconfirmed signals",
			55, Signals{BudgetConfirmed: true, NeedConfirmed: true}, false,
			Transition{Score: 55, Stage: StageWarming, Status: StatusWarming, GateOpen: false,
				MissingSignals: []string{"timeline"}},
		},
		{
			"low band with every signal confirmed stays closed",
			30, allSignals(), false,
			Transition{Score: 30, Stage: StageInbox, Status: StatusCurious, GateOpen: false},
		},
		{
			"top band with all signals",
			85, allSignals(), false,
			Transition{Score: 85, Stage: StageQualified, Status: StatusQualified, GateOpen: true},
		},
		{
			"top band gated without signals",
			85, Signals{}, false,
			Transition{Score: 85, Stage: StageWarming, Status: StatusWarming, GateOpen: false,
				MissingSignals: []string{"budget", "timeline", "need"}},
		},
		{
			"gate boundary at 70",
			70, Signals{BudgetConfirmed: true}, false,
			Transition{Score: 70, Stage: StageWarming, Status: StatusWarming, GateOpen: false,
				MissingSignals: []string{"timeline", "need"}},
		},
		{
			"just under the gate",
			69, Signals{}, false,
			Transition{Score: 69, Stage: StageWarming, Status: StatusWarming, GateOpen: false,
				MissingSignals: []string{"budget", "timeline", "need"}},
		},
		{
			"sent sticky keeps stage and floors score",
			30, Signals{}, true,
			Transition{Score: 70, Stage: StageSent, Status: StatusSent, GateOpen: true},
		},
		{
			"sent sticky keeps higher score",
			92, allSignals(), true,
			Transition{Score: 92, Stage: StageSent, Status: StatusSent, GateOpen: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.score, tt.signals, tt.keepSent)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Derive() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveGateScenario(t *testing.T) {
	// A warming lead confirms budget: score climbs into the top band but
	// the gate holds it at warming with the un-snapped score visible.
	rules := DefaultRules()
	budget, _ := rules.Lookup("budget_confirmed")
	signals := Signals{}.Apply(budget.Signals)

	first := Derive(float64(65+budget.Delta), signals, false)
	if first.Score != 80 || first.Stage != StageWarming || first.GateOpen {
		t.Fatalf("after budget: %+v", first)
	}
	if !reflect.DeepEqual(first.MissingSignals, []string{"timeline", "need"}) {
		t.Fatalf("missing = %v", first.MissingSignals)
	}

	need, _ := rules.Lookup("need_confirmed")
	timeline, _ := rules.Lookup("timeline_confirmed")
	signals = signals.Apply(need.Signals).Apply(timeline.Signals)

	second := Derive(float64(first.Score+need.Delta+timeline.Delta), signals, false)
	if second.Score != 100 || second.Stage != StageQualified || !second.GateOpen {
		t.Fatalf("after all signals: %+v", second)
	}
}

func TestSignalsApplyAndMissing(t *testing.T) {
	s := Signals{}
	if got := s.Missing(); !reflect.DeepEqual(got, []string{"budget", "timeline", "need"}) {
		t.Errorf("Missing() = %v", got)
	}

	s = s.Apply(SignalPatch{BudgetConfirmed: boolPtr(true)})
	if !s.BudgetConfirmed || s.TimelineConfirmed || s.NeedConfirmed {
		t.Errorf("after patch: %+v", s)
	}

	// Nil fields leave values untouched.
	s = s.Apply(SignalPatch{NeedConfirmed: boolPtr(true)})
	if !s.BudgetConfirmed || !s.NeedConfirmed {
		t.Errorf("after second patch: %+v", s)
	}

	s = s.Apply(SignalPatch{BudgetConfirmed: boolPtr(false)})
	if s.BudgetConfirmed {
		t.Error("patch did not clear budget")
	}
}

func TestApplyManualMove(t *testing.T) {
	tests := []struct {
		name    string
		target  Stage
		score   int
		signals Signals
		want    ManualMove
	}{
		{
			"qualified forces signals and snaps score up",
			StageQualified, 50, Signals{},
			ManualMove{Stage: StageQualified, Status: StatusQualified, Score: 70, Signals: allSignals()},
		},
		{
			"sent forces signals",
			StageSent, 85, Signals{BudgetConfirmed: true},
			ManualMove{Stage: StageSent, Status: StatusSent, Score: 85, Signals: allSignals()},
		},
		{
			"inbox clears signals and snaps score down",
			StageInbox, 85, allSignals(),
			ManualMove{Stage: StageInbox, Status: StatusCurious, Score: 39, Signals: Signals{}},
		},
		{
			"warming preserves signals",
			StageWarming, 80, Signals{BudgetConfirmed: true},
			ManualMove{Stage: StageWarming, Status: StatusWarming, Score: 69,
				Signals: Signals{BudgetConfirmed: true}},
		},
		{
			"in-band score untouched",
			StageWarming, 55, Signals{},
			ManualMove{Stage: StageWarming, Status: StatusWarming, Score: 55, Signals: Signals{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyManualMove(tt.target, tt.score, tt.signals)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyManualMove() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name   string
		stored Stage
		status Status
		want   Stage
	}{
		{"sent status always wins", StageWarming, StatusSent, StageSent},
		{"stored stage wins over lower status", StageQualified, StatusWarming, StageQualified},
		{"default inbox defers to status", StageInbox, StatusWarming, StageWarming},
		{"empty stored defers to status", "", StatusQualified, StageQualified},
		{"inbox with curious stays inbox", StageInbox, StatusCurious, StageInbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStage(tt.stored, tt.status); got != tt.want {
				t.Errorf("ResolveStage(%q, %q) = %q, want %q", tt.stored, tt.status, got, tt.want)
			}
		})
	}
}

func TestAppendReasonsTrimsOldest(t *testing.T) {
	var log []Reason
	for i := 0; i < 20; i++ {
		log = AppendReasons(log, Reason{Factor: "rule", Impact: i})
	}
	if len(log) != maxReasonLog {
		t.Fatalf("len = %d, want %d", len(log), maxReasonLog)
	}
	if log[0].Impact != 6 || log[len(log)-1].Impact != 19 {
		t.Errorf("kept range [%d,%d], want newest entries", log[0].Impact, log[len(log)-1].Impact)
	}
}

func TestScoreMetaRoundTripPreservesUnknownKeys(t *testing.T) {
	in := []byte(`{
		"crm_signals": {"budget_confirmed": true, "timeline_confirmed": false, "need_confirmed": false},
		"engine": "external_scorer",
		"model_name": "lead_scoring_v2",
		"probability_qualified": 0.42,
		"feature_vector": [1, 2, 3],
		"upstream_version": "7"
	}`)

	var meta ScoreMeta
	if err := json.Unmarshal(in, &meta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if meta.Signals == nil || !meta.Signals.BudgetConfirmed {
		t.Fatalf("signals = %+v", meta.Signals)
	}
	if meta.Engine != "external_scorer" || meta.ModelName != "lead_scoring_v2" {
		t.Errorf("attribution = %q/%q", meta.Engine, meta.ModelName)
	}
	if meta.ProbabilityQualified == nil || *meta.ProbabilityQualified != 0.42 {
		t.Errorf("probability = %v", meta.ProbabilityQualified)
	}
	if len(meta.Extra) != 2 {
		t.Fatalf("extra = %v", meta.Extra)
	}

	out, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if string(decoded["feature_vector"]) != "[1,2,3]" {
		t.Errorf("feature_vector = %s", decoded["feature_vector"])
	}
	if string(decoded["upstream_version"]) != `"7"` {
		t.Errorf("upstream_version = %s", decoded["upstream_version"])
	}
}

func TestScoreMetaEffectiveSignals(t *testing.T) {
	meta := ScoreMeta{
		Signals: &Signals{BudgetConfirmed: true},
		RuleEngine: &RuleEngineMeta{
			Engine:  RuleEngineName,
			Model:   RuleModelName,
			Signals: Signals{NeedConfirmed: true},
		},
	}
	got := meta.EffectiveSignals()
	want := Signals{BudgetConfirmed: true, NeedConfirmed: true}
	if got != want {
		t.Errorf("EffectiveSignals() = %+v, want %+v", got, want)
	}

	if (ScoreMeta{}).EffectiveSignals() != (Signals{}) {
		t.Error("empty meta should yield zero signals")
	}
}
