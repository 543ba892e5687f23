package service

import (
	"context"
	"strings"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
)

const defaultRuleSource = "kanban_ui"

// RuleCatalog lists the available CRM event rules.
func (s *Service) RuleCatalog() *transport.RuleCatalogResponse {
	rules := s.rules.Rules()
	items := make([]transport.RuleResponse, len(rules))
	for i, rule := range rules {
		items[i] = transport.NewRuleResponse(rule)
	}
	return &transport.RuleCatalogResponse{Items: items}
}

// ApplyRule applies a named CRM event rule to a lead: the rule's signal
// patch (plus any explicit request patch) merges into the current signal
// set, its delta moves the score, and the state machine derives the new
// stage and status. A reason entry and an audit event record the step.
func (s *Service) ApplyRule(ctx context.Context, leadID uuid.UUID, req transport.ApplyRuleRequest) (*transport.ApplyRuleResponse, error) {
	rule, ok := s.rules.Lookup(req.RuleCode)
	if !ok {
		return nil, apperr.BadRequest("unknown rule_code").
			WithDetails(map[string]any{"allowed_rules": s.rules.Codes()})
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	fromStage := lead.Stage()
	fromStatus := domain.BandForStage(fromStage).Status
	fromScore := domain.ClampScore(float64(lead.Score))

	signals := lead.ScoreMeta.EffectiveSignals().
		Apply(rule.Signals).
		Apply(req.SignalPatch.Patch())

	transition := domain.Derive(
		float64(fromScore+rule.Delta),
		signals,
		fromStatus == domain.StatusSent,
	)

	reason := domain.RuleReason(rule, fromStage, transition.Stage, transition.MissingSignals)
	reasons := domain.AppendReasons(lead.ScoreReasons, reason)

	now := time.Now()
	source := normalizeSource(req.Source)
	meta := lead.ScoreMeta
	meta.SetSignals(signals)
	meta.RuleEngine = &domain.RuleEngineMeta{
		Engine:    domain.RuleEngineName,
		Model:     domain.RuleModelName,
		Signals:   signals,
		LastRule:  rule.Code,
		LastDelta: rule.Delta,
		AppliedAt: now,
	}

	updated, err := s.repo.UpdateScore(ctx, leadID, repository.ScoreUpdate{
		Score:       transition.Score,
		Status:      transition.Status,
		Stage:       transition.Stage,
		Reasons:     reasons,
		Meta:        meta,
		Engine:      domain.RuleEngineName,
		ModelName:   domain.RuleModelName,
		Probability: lead.ScoreProbability,
		ScoredAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.InsertEvent(ctx, leadID, rule.EventType, map[string]any{
		"source":                  source,
		"rule_code":               rule.Code,
		"rule_label":              rule.Label,
		"score_delta":             rule.Delta,
		"from_score":              fromScore,
		"to_score":                transition.Score,
		"from_status":             string(fromStatus),
		"to_status":               string(transition.Status),
		"from_stage":              string(fromStage),
		"to_stage":                string(transition.Stage),
		"qualification_gate_open": transition.GateOpen,
		"missing_signals":         missingOrEmpty(transition.MissingSignals),
		"input":                   req.Metadata,
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, events.LeadRuleApplied{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RuleCode:  rule.Code,
		Delta:     rule.Delta,
		FromStage: string(fromStage),
		ToStage:   string(transition.Stage),
		ToScore:   transition.Score,
		GateOpen:  transition.GateOpen,
	})

	return &transport.ApplyRuleResponse{
		OK:   true,
		Rule: transport.NewRuleResponse(rule),
		Lead: transport.NewLeadResponse(updated),
		Transition: transport.TransitionResponse{
			FromStage:  string(fromStage),
			ToStage:    string(transition.Stage),
			FromStatus: string(fromStatus),
			ToStatus:   string(transition.Status),
			FromScore:  fromScore,
			ToScore:    transition.Score,
		},
		Gate: transport.GateResponse{
			Open:           transition.GateOpen,
			MissingSignals: missingOrEmpty(transition.MissingSignals),
		},
	}, nil
}

// MoveStage applies an operator's board move: signals are forced or
// cleared by the target column and the score snaps into its band.
func (s *Service) MoveStage(ctx context.Context, leadID uuid.UUID, stageRaw string) (*transport.MoveStageResponse, error) {
	target := domain.ParseStage(stageRaw)
	if target == "" {
		return nil, apperr.BadRequest("invalid stage").
			WithDetails(map[string]any{"allowed_stages": domain.Stages()})
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	fromStage := lead.Stage()
	fromStatus := domain.BandForStage(fromStage).Status
	fromScore := domain.ClampScore(float64(lead.Score))

	move := domain.ApplyManualMove(target, fromScore, lead.ScoreMeta.EffectiveSignals())

	now := time.Now()
	meta := lead.ScoreMeta
	meta.SetSignals(move.Signals)
	meta.ManualMove = &domain.ManualMoveMeta{Stage: target, MovedAt: now}

	updated, err := s.repo.UpdateScore(ctx, leadID, repository.ScoreUpdate{
		Score:       move.Score,
		Status:      move.Status,
		Stage:       move.Stage,
		Reasons:     lead.ScoreReasons,
		Meta:        meta,
		Engine:      strOr(lead.ScoreEngine),
		ModelName:   strOr(lead.ScoreModelName),
		Probability: lead.ScoreProbability,
		ScoredAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertCRMState(ctx, leadID, target); err != nil {
		return nil, err
	}

	if _, err := s.repo.InsertEvent(ctx, leadID, "crm_manual_move", map[string]any{
		"source":      "kanban_move",
		"from_stage":  string(fromStage),
		"to_stage":    string(target),
		"from_status": string(fromStatus),
		"to_status":   string(move.Status),
		"from_score":  fromScore,
		"to_score":    move.Score,
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, events.LeadStageMoved{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		FromStage: string(fromStage),
		ToStage:   string(target),
	})

	return &transport.MoveStageResponse{
		OK:   true,
		Lead: transport.NewLeadResponse(updated),
		Transition: transport.TransitionResponse{
			FromStage:  string(fromStage),
			ToStage:    string(target),
			FromStatus: string(fromStatus),
			ToStatus:   string(move.Status),
			FromScore:  fromScore,
			ToScore:    move.Score,
		},
	}, nil
}

func normalizeSource(raw string) string {
	source := strings.TrimSpace(raw)
	if source == "" {
		return defaultRuleSource
	}
	if len(source) > 80 {
		source = source[:80]
	}
	return source
}

func missingOrEmpty(missing []string) []string {
	if missing == nil {
		return []string{}
	}
	return missing
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
