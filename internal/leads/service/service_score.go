package service

import (
	"context"
	"encoding/json"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/internal/scoring"

	"github.com/google/uuid"
)

// Score sends the lead and its full event history to the external scorer
// and persists the verdict. The scorer only proposes a raw score; the
// state machine still derives stage and status, so the qualification gate
// and sticky SENT hold even against an enthusiastic model.
func (s *Service) Score(ctx context.Context, leadID uuid.UUID) (*transport.ScoreResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListEventsChronological(ctx, leadID)
	if err != nil {
		return nil, err
	}

	eventPayload := make([]transport.EventResponse, len(history))
	for i, e := range history {
		eventPayload[i] = transport.NewEventResponse(e)
	}

	result, err := s.scorer.Score(ctx, leadID.String(), scoring.Request{
		Lead:   transport.NewLeadResponse(lead),
		Events: eventPayload,
	})
	if err != nil {
		return nil, err
	}

	fromStatus := domain.BandForStage(lead.Stage()).Status
	meta := mergeScoreMeta(lead.ScoreMeta, result.Meta)
	transition := domain.Derive(result.Score, meta.EffectiveSignals(), fromStatus == domain.StatusSent)

	reasons := domain.AppendReasons(nil, result.Reasons...)

	now := time.Now()
	updated, err := s.repo.UpdateScore(ctx, leadID, repository.ScoreUpdate{
		Score:       transition.Score,
		Status:      transition.Status,
		Stage:       transition.Stage,
		Reasons:     reasons,
		Meta:        meta,
		Engine:      meta.Engine,
		ModelName:   meta.ModelName,
		Probability: meta.ProbabilityQualified,
		ScoredAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.LeadScored{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Score:     transition.Score,
		Status:    string(transition.Status),
		Engine:    meta.Engine,
	})

	return &transport.ScoreResponse{
		Score:       transition.Score,
		Status:      string(transition.Status),
		Reasons:     reasons,
		Lead:        transport.NewLeadResponse(updated),
		Diagnostics: diagnostics(updated),
	}, nil
}

// ScoreDiagnostics exposes the stored attribution of a lead's last
// scoring pass.
func (s *Service) ScoreDiagnostics(ctx context.Context, leadID uuid.UUID) (*transport.ScoreDiagnosticsResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	d := diagnostics(lead)
	return &d, nil
}

func diagnostics(lead *repository.Lead) transport.ScoreDiagnosticsResponse {
	return transport.ScoreDiagnosticsResponse{
		LeadID:      lead.ID,
		Score:       lead.Score,
		Status:      lead.Status,
		Engine:      strOr(lead.ScoreEngine),
		ModelName:   strOr(lead.ScoreModelName),
		Probability: lead.ScoreProbability,
		ScoredAt:    lead.ScoreScoredAt,
		Meta:        lead.ScoreMeta,
	}
}

// mergeScoreMeta overlays the scorer's metadata on the stored blob:
// scorer keys win, everything it did not mention survives.
func mergeScoreMeta(stored, incoming domain.ScoreMeta) domain.ScoreMeta {
	merged := stored
	if len(incoming.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(stored.Extra)+len(incoming.Extra))
		for k, v := range stored.Extra {
			extra[k] = v
		}
		for k, v := range incoming.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}
	if incoming.Signals != nil {
		merged.Signals = incoming.Signals
	}
	if incoming.RuleEngine != nil {
		merged.RuleEngine = incoming.RuleEngine
	}
	if incoming.ManualMove != nil {
		merged.ManualMove = incoming.ManualMove
	}
	if incoming.Engine != "" {
		merged.Engine = incoming.Engine
	}
	if incoming.ModelName != "" {
		merged.ModelName = incoming.ModelName
	}
	if incoming.ProbabilityQualified != nil {
		merged.ProbabilityQualified = incoming.ProbabilityQualified
	}
	return merged
}
