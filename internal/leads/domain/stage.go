package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Stage is a kanban column. Stages are derived from score and signals,
// never stored as free text.
type Stage string

const (
	StageInbox     Stage = "INBOX"
	StageWarming   Stage = "WARMING"
	StageQualified Stage = "QUALIFIED"
	StageSent      Stage = "SENT"
)

// Status is the lead temperature label shown alongside the score.
type Status string

const (
	StatusCurious   Status = "CURIOUS"
	StatusWarming   Status = "WARMING"
	StatusQualified Status = "QUALIFIED"
	StatusSent      Status = "SENT"
)

// ParseStage normalizes a user-supplied stage name. Returns "" when the
// input names no known stage.
func ParseStage(value string) Stage {
	switch Stage(strings.ToUpper(strings.TrimSpace(value))) {
	case StageInbox:
		return StageInbox
	case StageWarming:
		return StageWarming
	case StageQualified:
		return StageQualified
	case StageSent:
		return StageSent
	}
	return ""
}

// Stages lists the board columns in pipeline order.
func Stages() []Stage {
	return []Stage{StageInbox, StageWarming, StageQualified, StageSent}
}

// Band is a contiguous score range mapped to a stage and status.
type Band struct {
	Min    int
	Max    int
	Stage  Stage
	Status Status
}

var bands = []Band{
	{Min: 0, Max: 39, Stage: StageInbox, Status: StatusCurious},
	{Min: 40, Max: 69, Stage: StageWarming, Status: StatusWarming},
	{Min: 70, Max: 100, Stage: StageQualified, Status: StatusQualified},
}

// sentBand is not reachable by score alone; SENT is entered manually and
// then kept sticky.
var sentBand = Band{Min: 70, Max: 100, Stage: StageSent, Status: StatusSent}

// BandFor returns the band a (clamped) score falls into.
func BandFor(score int) Band {
	score = clampInt(score, 0, 100)
	for _, b := range bands {
		if score >= b.Min && score <= b.Max {
			return b
		}
	}
	return bands[len(bands)-1]
}

// BandForStage returns the score range a stage snaps into.
func BandForStage(stage Stage) Band {
	if stage == StageSent {
		return sentBand
	}
	for _, b := range bands {
		if b.Stage == stage {
			return b
		}
	}
	return bands[0]
}

// ClampScore rounds and bounds a raw score to the [0, 100] integer range.
func ClampScore(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	return clampInt(int(math.Round(raw)), 0, 100)
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Signals are the qualification facts a lead must confirm before the top
// band opens.
type Signals struct {
	BudgetConfirmed   bool `json:"budget_confirmed"`
	TimelineConfirmed bool `json:"timeline_confirmed"`
	NeedConfirmed     bool `json:"need_confirmed"`
}

// AllSet reports whether every qualification signal is confirmed.
func (s Signals) AllSet() bool {
	return s.BudgetConfirmed && s.TimelineConfirmed && s.NeedConfirmed
}

// Missing lists the unconfirmed signals, in stable order.
func (s Signals) Missing() []string {
	var missing []string
	if !s.BudgetConfirmed {
		missing = append(missing, "budget")
	}
	if !s.TimelineConfirmed {
		missing = append(missing, "timeline")
	}
	if !s.NeedConfirmed {
		missing = append(missing, "need")
	}
	return missing
}

// SignalPatch is a partial update; nil fields leave the signal untouched.
type SignalPatch struct {
	BudgetConfirmed   *bool
	TimelineConfirmed *bool
	NeedConfirmed     *bool
}

// IsZero reports whether the patch changes nothing.
func (p SignalPatch) IsZero() bool {
	return p.BudgetConfirmed == nil && p.TimelineConfirmed == nil && p.NeedConfirmed == nil
}

// Apply merges a patch into the signal set.
func (s Signals) Apply(p SignalPatch) Signals {
	if p.BudgetConfirmed != nil {
		s.BudgetConfirmed = *p.BudgetConfirmed
	}
	if p.TimelineConfirmed != nil {
		s.TimelineConfirmed = *p.TimelineConfirmed
	}
	if p.NeedConfirmed != nil {
		s.NeedConfirmed = *p.NeedConfirmed
	}
	return s
}

// Or returns the signal-wise OR of two sets.
func (s Signals) Or(other Signals) Signals {
	return Signals{
		BudgetConfirmed:   s.BudgetConfirmed || other.BudgetConfirmed,
		TimelineConfirmed: s.TimelineConfirmed || other.TimelineConfirmed,
		NeedConfirmed:     s.NeedConfirmed || other.NeedConfirmed,
	}
}

// Transition is the outcome of deriving stage and status from a score.
type Transition struct {
	Score          int
	Stage          Stage
	Status         Status
	GateOpen       bool
	MissingSignals []string
}

// Derive maps a raw score plus the qualification signals onto a stage and
// status. keepSent pins a lead that was already marked SENT: the stage
// stays SENT and the score never drops below the top band floor.
//
// A score inside the top band does not open QUALIFIED by itself; without
// all three signals confirmed the lead is held at WARMING. The score is
// kept as-is rather than snapped down, so the held value is visible.
// Below the top band the gate is always reported closed, with whatever
// signals are still unconfirmed listed as missing.
func Derive(rawScore float64, signals Signals, keepSent bool) Transition {
	score := ClampScore(rawScore)

	if keepSent {
		if score < sentBand.Min {
			score = sentBand.Min
		}
		return Transition{Score: score, Stage: StageSent, Status: StatusSent, GateOpen: true}
	}

	band := BandFor(score)
	if band.Stage == StageQualified {
		if !signals.AllSet() {
			return Transition{
				Score:          score,
				Stage:          StageWarming,
				Status:         StatusWarming,
				GateOpen:       false,
				MissingSignals: signals.Missing(),
			}
		}
		return Transition{Score: score, Stage: band.Stage, Status: band.Status, GateOpen: true}
	}
	return Transition{
		Score:          score,
		Stage:          band.Stage,
		Status:         band.Status,
		GateOpen:       false,
		MissingSignals: signals.Missing(),
	}
}

// SnapScore forces a score into a stage's band: values already inside the
// band are preserved, values outside are clamped to the nearest edge.
func SnapScore(score int, stage Stage) int {
	b := BandForStage(stage)
	return clampInt(score, b.Min, b.Max)
}

// ManualMove is the result of an operator dragging a lead to a stage.
type ManualMove struct {
	Stage   Stage
	Status  Status
	Score   int
	Signals Signals
}

// ApplyManualMove computes the state after an explicit stage move. Moving
// into QUALIFIED or SENT asserts all qualification signals, moving back
// to INBOX clears them, and WARMING preserves whatever was confirmed.
// The score snaps into the target band without losing in-band precision.
func ApplyManualMove(target Stage, score int, signals Signals) ManualMove {
	switch target {
	case StageQualified, StageSent:
		signals = Signals{BudgetConfirmed: true, TimelineConfirmed: true, NeedConfirmed: true}
	case StageInbox:
		signals = Signals{}
	}

	status := BandForStage(target).Status
	return ManualMove{
		Stage:   target,
		Status:  status,
		Score:   SnapScore(score, target),
		Signals: signals,
	}
}

// ResolveStage reconciles a stored stage with the stage implied by the
// current status. SENT status always wins; a stored INBOX defers to the
// status so re-scored leads climb off the board's first column.
func ResolveStage(stored Stage, status Status) Stage {
	if status == StatusSent {
		return StageSent
	}
	if stored != "" && stored != StageInbox {
		return stored
	}
	return stageForStatus(status)
}

func stageForStatus(status Status) Stage {
	switch status {
	case StatusWarming:
		return StageWarming
	case StatusQualified:
		return StageQualified
	case StatusSent:
		return StageSent
	}
	return StageInbox
}

// maxReasonLog bounds the per-lead score reason history.
const maxReasonLog = 14

// Reason is one entry in a lead's score explanation log.
type Reason struct {
	Factor string `json:"factor"`
	Impact int    `json:"impact"`
	Detail string `json:"detail,omitempty"`
}

// RuleReason builds the human-readable log entry for one rule application.
func RuleReason(rule Rule, fromStage, toStage Stage, missing []string) Reason {
	gateMsg := "Qualification gate satisfied."
	if len(missing) > 0 {
		gateMsg = "Pending for QUALIFIED: " + strings.Join(missing, ", ") + "."
	}
	return Reason{
		Factor: "CRM event: " + rule.Label,
		Impact: rule.Delta,
		Detail: fmt.Sprintf("Move %s -> %s. %s", fromStage, toStage, gateMsg),
	}
}

// AppendReasons appends new entries to the log and trims the oldest ones
// so at most the newest entries remain.
func AppendReasons(log []Reason, entries ...Reason) []Reason {
	log = append(log, entries...)
	if len(log) > maxReasonLog {
		log = log[len(log)-maxReasonLog:]
	}
	return log
}

// Attribution values stamped into score metadata.
const (
	RuleEngineName = "crm_rule_engine"
	RuleModelName  = "kanban_event_rules_v1"
)

// RuleEngineMeta records the last rule-engine action on a lead.
type RuleEngineMeta struct {
	Engine    string    `json:"engine"`
	Model     string    `json:"model"`
	Signals   Signals   `json:"signals"`
	LastRule  string    `json:"last_rule,omitempty"`
	LastDelta int       `json:"last_delta,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
}

// ManualMoveMeta records the last operator-driven stage move.
type ManualMoveMeta struct {
	Stage   Stage     `json:"stage"`
	MovedAt time.Time `json:"moved_at"`
}

// ScoreMeta is the JSON metadata blob stored with a lead's CRM state.
// Known keys are typed; unknown keys written by other producers (the
// external scorer in particular) survive round trips untouched.
type ScoreMeta struct {
	Signals              *Signals        `json:"-"`
	RuleEngine           *RuleEngineMeta `json:"-"`
	ManualMove           *ManualMoveMeta `json:"-"`
	Engine               string          `json:"-"`
	ModelName            string          `json:"-"`
	ProbabilityQualified *float64        `json:"-"`

	Extra map[string]json.RawMessage `json:"-"`
}

const (
	metaKeySignals     = "crm_signals"
	metaKeyRuleEngine  = "crm_rule_engine"
	metaKeyManualMove  = "manual_move"
	metaKeyEngine      = "engine"
	metaKeyModelName   = "model_name"
	metaKeyProbability = "probability_qualified"
)

// EffectiveSignals combines the direct signal set with signals recorded
// inside the rule-engine block, so either producer can confirm a fact.
func (m ScoreMeta) EffectiveSignals() Signals {
	var out Signals
	if m.Signals != nil {
		out = *m.Signals
	}
	if m.RuleEngine != nil {
		out = out.Or(m.RuleEngine.Signals)
	}
	return out
}

// SetSignals stores the signal set under the typed key.
func (m *ScoreMeta) SetSignals(s Signals) {
	m.Signals = &s
}

func (m ScoreMeta) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+6)
	for k, v := range m.Extra {
		out[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}

	if m.Signals != nil {
		if err := put(metaKeySignals, m.Signals); err != nil {
			return nil, err
		}
	}
	if m.RuleEngine != nil {
		if err := put(metaKeyRuleEngine, m.RuleEngine); err != nil {
			return nil, err
		}
	}
	if m.ManualMove != nil {
		if err := put(metaKeyManualMove, m.ManualMove); err != nil {
			return nil, err
		}
	}
	if m.Engine != "" {
		if err := put(metaKeyEngine, m.Engine); err != nil {
			return nil, err
		}
	}
	if m.ModelName != "" {
		if err := put(metaKeyModelName, m.ModelName); err != nil {
			return nil, err
		}
	}
	if m.ProbabilityQualified != nil {
		if err := put(metaKeyProbability, m.ProbabilityQualified); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

func (m *ScoreMeta) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = ScoreMeta{}
	for key, val := range raw {
		switch key {
		case metaKeySignals:
			var s Signals
			if err := json.Unmarshal(val, &s); err == nil {
				m.Signals = &s
				continue
			}
		case metaKeyRuleEngine:
			var re RuleEngineMeta
			if err := json.Unmarshal(val, &re); err == nil {
				m.RuleEngine = &re
				continue
			}
		case metaKeyManualMove:
			var mv ManualMoveMeta
			if err := json.Unmarshal(val, &mv); err == nil {
				m.ManualMove = &mv
				continue
			}
		case metaKeyEngine:
			var s string
			if err := json.Unmarshal(val, &s); err == nil {
				m.Engine = s
				continue
			}
		case metaKeyModelName:
			var s string
			if err := json.Unmarshal(val, &s); err == nil {
				m.ModelName = s
				continue
			}
		case metaKeyProbability:
			var p float64
			if err := json.Unmarshal(val, &p); err == nil {
				m.ProbabilityQualified = &p
				continue
			}
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[key] = val
	}
	return nil
}
