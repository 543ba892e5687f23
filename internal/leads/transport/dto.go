// Package transport defines the request and response shapes of the leads
// HTTP API.
package transport

import (
	"time"

	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateLeadRequest is the intake payload. Name and segment are the only
// mandatory fields; everything else sharpens identity matching.
type CreateLeadRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=120"`
	WhatsApp      string `json:"whatsapp" validate:"omitempty,max=32"`
	Email         string `json:"email" validate:"omitempty,max=180"`
	Region        string `json:"region" validate:"omitempty,max=2"`
	City          string `json:"city" validate:"omitempty,max=120"`
	Segment       string `json:"segment" validate:"required,min=1,max=40"`
	BudgetBand    string `json:"budget_band" validate:"omitempty,max=40"`
	TimeframeBand string `json:"timeframe_band" validate:"omitempty,max=20"`
}

// UpdateLeadRequest is a partial update of a lead's identity fields.
type UpdateLeadRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=120"`
	WhatsApp      *string `json:"whatsapp" validate:"omitempty,max=32"`
	Email         *string `json:"email" validate:"omitempty,max=180"`
	Region        *string `json:"region" validate:"omitempty,max=2"`
	City          *string `json:"city" validate:"omitempty,max=120"`
	Segment       *string `json:"segment" validate:"omitempty,min=1,max=40"`
	BudgetBand    *string `json:"budget_band" validate:"omitempty,max=40"`
	TimeframeBand *string `json:"timeframe_band" validate:"omitempty,max=20"`
}

// SignalPatchRequest is an explicit signal override submitted alongside a
// rule application. Absent fields leave the signal untouched.
type SignalPatchRequest struct {
	BudgetConfirmed   *bool `json:"budget_confirmed"`
	TimelineConfirmed *bool `json:"timeline_confirmed"`
	NeedConfirmed     *bool `json:"need_confirmed"`
}

// Patch converts the request into a domain signal patch.
func (r *SignalPatchRequest) Patch() domain.SignalPatch {
	if r == nil {
		return domain.SignalPatch{}
	}
	return domain.SignalPatch{
		BudgetConfirmed:   r.BudgetConfirmed,
		TimelineConfirmed: r.TimelineConfirmed,
		NeedConfirmed:     r.NeedConfirmed,
	}
}

// ApplyRuleRequest names the rule to apply plus optional context.
type ApplyRuleRequest struct {
	RuleCode    string              `json:"rule_code" validate:"required"`
	Source      string              `json:"source" validate:"omitempty,max=80"`
	Metadata    map[string]any      `json:"metadata"`
	SignalPatch *SignalPatchRequest `json:"signal_patch"`
}

// MoveStageRequest moves a lead to a board column. LeadID is only needed
// on the board-level route; the per-lead route takes it from the path.
type MoveStageRequest struct {
	LeadID *uuid.UUID `json:"lead_id"`
	Stage  string     `json:"stage" validate:"required"`
}

// AppendEventRequest appends a raw audit event to a lead's timeline.
type AppendEventRequest struct {
	LeadID    uuid.UUID      `json:"lead_id" validate:"required"`
	EventType string         `json:"event_type" validate:"required,max=80"`
	Metadata  map[string]any `json:"metadata"`
}

// AddNoteRequest stores a note, optionally carrying a follow-up schedule.
type AddNoteRequest struct {
	Note       string `json:"note" validate:"required,min=1,max=2000"`
	ActionDate string `json:"action_date" validate:"omitempty,max=10"`
	ActionTime string `json:"action_time" validate:"omitempty,max=8"`
}

// NextActionRequest saves or replaces a lead's scheduled follow-up.
type NextActionRequest struct {
	Text  string `json:"text" validate:"omitempty,max=500"`
	Date  string `json:"date" validate:"omitempty,max=10"`
	Time  string `json:"time" validate:"omitempty,max=8"`
	Clear bool   `json:"clear"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// NextActionResponse is a lead's scheduled follow-up.
type NextActionResponse struct {
	Text string `json:"text,omitempty"`
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
	At   string `json:"at,omitempty"`
}

// LeadResponse is the serialized lead returned by every lead endpoint.
type LeadResponse struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	WhatsApp         string              `json:"whatsapp,omitempty"`
	Email            string              `json:"email,omitempty"`
	Region           string              `json:"region,omitempty"`
	City             string              `json:"city,omitempty"`
	Segment          string              `json:"segment,omitempty"`
	BudgetBand       string              `json:"budget_band,omitempty"`
	TimeframeBand    string              `json:"timeframe_band,omitempty"`
	Status           string              `json:"status"`
	Score            int                 `json:"score"`
	CRMStage         string              `json:"crm_stage"`
	ScoreReasons     []domain.Reason     `json:"score_reasons"`
	ScoreEngine      string              `json:"score_engine,omitempty"`
	ScoreModelName   string              `json:"score_model_name,omitempty"`
	ScoreProbability *float64            `json:"score_probability,omitempty"`
	ScoreScoredAt    *time.Time          `json:"score_scored_at,omitempty"`
	Signals          domain.Signals      `json:"qualification_signals"`
	NextAction       *NextActionResponse `json:"next_action,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        *time.Time          `json:"updated_at,omitempty"`
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewLeadResponse serializes a lead row, resolving the board stage and
// the effective qualification signals.
func NewLeadResponse(lead *repository.Lead) LeadResponse {
	resp := LeadResponse{
		ID:               lead.ID,
		Name:             lead.Name,
		WhatsApp:         strOrEmpty(lead.WhatsApp),
		Email:            strOrEmpty(lead.Email),
		Region:           strOrEmpty(lead.Region),
		City:             strOrEmpty(lead.City),
		Segment:          strOrEmpty(lead.Segment),
		BudgetBand:       strOrEmpty(lead.BudgetBand),
		TimeframeBand:    strOrEmpty(lead.TimeframeBand),
		Status:           lead.Status,
		Score:            lead.Score,
		CRMStage:         string(lead.Stage()),
		ScoreReasons:     lead.ScoreReasons,
		ScoreEngine:      strOrEmpty(lead.ScoreEngine),
		ScoreModelName:   strOrEmpty(lead.ScoreModelName),
		ScoreProbability: lead.ScoreProbability,
		ScoreScoredAt:    lead.ScoreScoredAt,
		Signals:          lead.ScoreMeta.EffectiveSignals(),
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
	if resp.ScoreReasons == nil {
		resp.ScoreReasons = []domain.Reason{}
	}
	if lead.NextActionText != nil || lead.NextActionDate != nil {
		action := &NextActionResponse{Text: strOrEmpty(lead.NextActionText)}
		if lead.NextActionDate != nil {
			action.Date = lead.NextActionDate.Format("2006-01-02")
		}
		if lead.NextActionTime != nil {
			action.Time = *lead.NextActionTime
		}
		if lead.NextActionAt != nil {
			action.At = lead.NextActionAt.Format(time.RFC3339)
		}
		resp.NextAction = action
	}
	return resp
}

// NewLeadResponses serializes a slice of lead rows.
func NewLeadResponses(leads []Lead) []LeadResponse {
	out := make([]LeadResponse, len(leads))
	for i := range leads {
		out[i] = NewLeadResponse(&leads[i])
	}
	return out
}

// Lead aliases the repository row for response building.
type Lead = repository.Lead

// CreateLeadResponse reports intake outcome: the lead plus whether the
// submission was folded into an existing record.
type CreateLeadResponse struct {
	Lead                LeadResponse `json:"lead"`
	Deduplicated        bool         `json:"deduplicated"`
	DedupeWindowMinutes int          `json:"dedupe_window_minutes"`
}

// RuleResponse is one catalog entry.
type RuleResponse struct {
	Code        string          `json:"code"`
	Label       string          `json:"label"`
	EventType   string          `json:"event_type"`
	Delta       int             `json:"delta"`
	Direction   string          `json:"direction"`
	SignalPatch map[string]bool `json:"signal_patch"`
}

// NewRuleResponse serializes a rule for the catalog.
func NewRuleResponse(rule domain.Rule) RuleResponse {
	patch := map[string]bool{}
	if rule.Signals.BudgetConfirmed != nil {
		patch["budget_confirmed"] = *rule.Signals.BudgetConfirmed
	}
	if rule.Signals.TimelineConfirmed != nil {
		patch["timeline_confirmed"] = *rule.Signals.TimelineConfirmed
	}
	if rule.Signals.NeedConfirmed != nil {
		patch["need_confirmed"] = *rule.Signals.NeedConfirmed
	}
	return RuleResponse{
		Code:        rule.Code,
		Label:       rule.Label,
		EventType:   rule.EventType,
		Delta:       rule.Delta,
		Direction:   rule.Direction(),
		SignalPatch: patch,
	}
}

// RuleCatalogResponse lists the available rules.
type RuleCatalogResponse struct {
	Items []RuleResponse `json:"items"`
}

// TransitionResponse summarizes a state machine step.
type TransitionResponse struct {
	FromStage  string `json:"from_stage"`
	ToStage    string `json:"to_stage"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	FromScore  int    `json:"from_score"`
	ToScore    int    `json:"to_score"`
}

// GateResponse reports the qualification gate after a transition.
type GateResponse struct {
	Open           bool     `json:"open"`
	MissingSignals []string `json:"missing_signals"`
}

// ApplyRuleResponse is the outcome of one rule application.
type ApplyRuleResponse struct {
	OK         bool               `json:"ok"`
	Rule       RuleResponse       `json:"rule"`
	Lead       LeadResponse       `json:"lead"`
	Transition TransitionResponse `json:"transition"`
	Gate       GateResponse       `json:"qualification_gate"`
}

// MoveStageResponse is the outcome of a manual board move.
type MoveStageResponse struct {
	OK         bool               `json:"ok"`
	Lead       LeadResponse       `json:"lead"`
	Transition TransitionResponse `json:"transition"`
}

// DedupPairResponse is one planned duplicate fold.
type DedupPairResponse struct {
	DupID  uuid.UUID `json:"dup_id"`
	KeepID uuid.UUID `json:"keep_id"`
}

// DedupScanResponse summarizes a duplicate scan, dry or applied.
type DedupScanResponse struct {
	OK              bool                  `json:"ok"`
	DryRun          bool                  `json:"dry_run"`
	WindowMinutes   int                   `json:"window_minutes"`
	BeforeLeads     int                   `json:"before_leads"`
	DuplicateGroups int                   `json:"duplicate_groups"`
	DuplicatedRows  int                   `json:"duplicated_rows"`
	RowsToDelete    int                   `json:"rows_to_delete"`
	DeletedLeads    int64                 `json:"deleted_leads"`
	AfterLeads      int64                 `json:"after_leads"`
	Migrated        repository.MergeStats `json:"migrated"`
	Sample          []DedupPairResponse   `json:"sample"`
}

// EventResponse is one audit event.
type EventResponse struct {
	ID        int64          `json:"id"`
	LeadID    uuid.UUID      `json:"lead_id"`
	EventType string         `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEventResponse serializes an audit event.
func NewEventResponse(e repository.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		LeadID:    e.LeadID,
		EventType: e.EventType,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// NoteResponse is one lead note. Legacy follow-up notes are decoded into
// the structured fields.
type NoteResponse struct {
	ID         int64     `json:"id"`
	LeadID     uuid.UUID `json:"lead_id"`
	NoteType   string    `json:"note_type"`
	Note       string    `json:"note"`
	ActionDate string    `json:"action_date,omitempty"`
	ActionTime string    `json:"action_time,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewNoteResponse serializes a note row, decoding the legacy
// NEXT_ACTION note encoding when present.
func NewNoteResponse(n repository.Note) NoteResponse {
	resp := NoteResponse{
		ID:         n.ID,
		LeadID:     n.LeadID,
		NoteType:   n.NoteType,
		Note:       n.NoteText,
		ActionDate: strOrEmpty(n.ActionDate),
		ActionTime: strOrEmpty(n.ActionTime),
		CreatedAt:  n.CreatedAt,
	}
	if action, ok := domain.ParseLegacyNote(n.NoteText); ok {
		resp.NoteType = "NEXT_ACTION"
		resp.Note = action.Text
		if resp.ActionDate == "" {
			resp.ActionDate = action.Date
		}
		if resp.ActionTime == "" {
			resp.ActionTime = action.Time
		}
	}
	return resp
}

// ScoreDiagnosticsResponse exposes the stored attribution of a lead's
// last scoring pass.
type ScoreDiagnosticsResponse struct {
	LeadID      uuid.UUID        `json:"lead_id"`
	Score       int              `json:"score"`
	Status      string           `json:"status"`
	Engine      string           `json:"engine,omitempty"`
	ModelName   string           `json:"model_name,omitempty"`
	Probability *float64         `json:"probability_qualified,omitempty"`
	ScoredAt    *time.Time       `json:"scored_at,omitempty"`
	Meta        domain.ScoreMeta `json:"meta"`
}

// ScoreResponse is the outcome of an external scoring pass.
type ScoreResponse struct {
	Score       int                      `json:"score"`
	Status      string                   `json:"status"`
	Reasons     []domain.Reason          `json:"reasons"`
	Lead        LeadResponse             `json:"lead"`
	Diagnostics ScoreDiagnosticsResponse `json:"diagnostics"`
}

// BoardColumnResponse is one kanban column with its leads.
type BoardColumnResponse struct {
	Stage string         `json:"stage"`
	Leads []LeadResponse `json:"leads"`
}

// BoardResponse is the full kanban board, deduplicated.
type BoardResponse struct {
	Columns []BoardColumnResponse `json:"columns"`
}

// LeadListResponse wraps a deduplicated lead listing.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
}

// EventListResponse wraps a lead's audit timeline.
type EventListResponse struct {
	Items []EventResponse `json:"items"`
}

// NoteListResponse wraps a lead's notes.
type NoteListResponse struct {
	Items []NoteResponse `json:"items"`
}
