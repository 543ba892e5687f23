package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Lead is the database model for a lead row
type Lead struct {
	ID               uuid.UUID        `db:"id"`
	Name             string           `db:"name"`
	WhatsApp         *string          `db:"whatsapp"`
	Email            *string          `db:"email"`
	Region           *string          `db:"region"`
	City             *string          `db:"city"`
	Segment          *string          `db:"segment"`
	BudgetBand       *string          `db:"budget_band"`
	TimeframeBand    *string          `db:"timeframe_band"`
	Status           string           `db:"status"`
	Score            int              `db:"score"`
	CRMStage         *string          `db:"crm_stage"`
	ScoreReasons     []domain.Reason  `db:"score_reasons"`
	ScoreEngine      *string          `db:"score_engine"`
	ScoreModelName   *string          `db:"score_model_name"`
	ScoreProbability *float64         `db:"score_probability"`
	ScoreScoredAt    *time.Time       `db:"score_scored_at"`
	ScoreMeta        domain.ScoreMeta `db:"score_meta"`
	NextActionText   *string          `db:"next_action_text"`
	NextActionDate   *time.Time       `db:"next_action_date"`
	NextActionTime   *string          `db:"next_action_time"`
	NextActionAt     *time.Time       `db:"next_action_at"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        *time.Time       `db:"updated_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Identity builds the normalized identity tokens for this row.
func (l *Lead) Identity() domain.Identity {
	return domain.NewIdentity(
		l.Name, deref(l.Region), deref(l.City), deref(l.Segment),
		deref(l.BudgetBand), deref(l.TimeframeBand), deref(l.Email), deref(l.WhatsApp),
	)
}

// Candidate projects the row down to what duplicate grouping needs.
func (l *Lead) Candidate() domain.Candidate {
	return domain.Candidate{
		ID:        l.ID,
		Identity:  l.Identity(),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// Stage resolves the board column for this row.
func (l *Lead) Stage() domain.Stage {
	return domain.ResolveStage(domain.ParseStage(deref(l.CRMStage)), domain.Status(l.Status))
}

// Event is the database model for an audit event
type Event struct {
	ID        int64          `db:"id"`
	LeadID    uuid.UUID      `db:"lead_id"`
	EventType string         `db:"event_type"`
	Metadata  map[string]any `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}

// Note is the database model for a lead note
type Note struct {
	ID         int64     `db:"id"`
	LeadID     uuid.UUID `db:"lead_id"`
	NoteType   string    `db:"note_type"`
	NoteText   string    `db:"note_text"`
	ActionDate *string   `db:"action_date"`
	ActionTime *string   `db:"action_time"`
	CreatedAt  time.Time `db:"created_at"`
}

// CRMState is the database model for per-lead board state
type CRMState struct {
	LeadID         uuid.UUID  `db:"lead_id"`
	Stage          string     `db:"stage"`
	Position       int        `db:"position"`
	NextActionText *string    `db:"next_action_text"`
	NextActionAt   *time.Time `db:"next_action_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// ListParams contains filters for listing leads
type ListParams struct {
	Status   string
	Region   string
	Segment  string
	MinScore *int
}

// FieldPatch is a partial update to a lead's identity fields. Nil fields
// are left untouched.
type FieldPatch struct {
	Name          *string
	WhatsApp      *string
	Email         *string
	Region        *string
	City          *string
	Segment       *string
	BudgetBand    *string
	TimeframeBand *string
}

// IsZero reports whether the patch changes nothing.
func (p FieldPatch) IsZero() bool {
	return p.Name == nil && p.WhatsApp == nil && p.Email == nil && p.Region == nil &&
		p.City == nil && p.Segment == nil && p.BudgetBand == nil && p.TimeframeBand == nil
}

// ScoreUpdate carries the full scoring outcome persisted in one write.
type ScoreUpdate struct {
	Score       int
	Status      domain.Status
	Stage       domain.Stage
	Reasons     []domain.Reason
	Meta        domain.ScoreMeta
	Engine      string
	ModelName   string
	Probability *float64
	ScoredAt    time.Time
}

// ── Repository ────────────────────────────────────────────────────────────────

const leadNotFoundMsg = "lead not found"

const leadColumns = `id, name, whatsapp, email, region, city, segment, budget_band, timeframe_band,
		status, score, crm_stage, score_reasons, score_engine, score_model_name,
		score_probability, score_scored_at, score_meta,
		next_action_text, next_action_date, next_action_time, next_action_at,
		created_at, updated_at`

// Repository provides database operations for leads
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.WhatsApp, &l.Email, &l.Region, &l.City, &l.Segment,
		&l.BudgetBand, &l.TimeframeBand, &l.Status, &l.Score, &l.CRMStage,
		&l.ScoreReasons, &l.ScoreEngine, &l.ScoreModelName,
		&l.ScoreProbability, &l.ScoreScoredAt, &l.ScoreMeta,
		&l.NextActionText, &l.NextActionDate, &l.NextActionTime, &l.NextActionAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()
	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// Create inserts a new lead
func (r *Repository) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO leads (
			id, name, whatsapp, email, region, city, segment, budget_band, timeframe_band,
			status, score, score_reasons, score_meta, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := r.pool.Exec(ctx, query,
		lead.ID, lead.Name, lead.WhatsApp, lead.Email, lead.Region, lead.City,
		lead.Segment, lead.BudgetBand, lead.TimeframeBand,
		lead.Status, lead.Score, lead.ScoreReasons, lead.ScoreMeta, lead.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// List retrieves leads matching the filters, most recently touched first
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	var statusParam, regionParam, segmentParam, minScoreParam any
	if params.Status != "" {
		statusParam = strings.ToUpper(strings.TrimSpace(params.Status))
	}
	if params.Region != "" {
		regionParam = strings.ToUpper(strings.TrimSpace(params.Region))
	}
	if params.Segment != "" {
		segmentParam = strings.ToUpper(strings.TrimSpace(params.Segment))
	}
	if params.MinScore != nil {
		minScoreParam = *params.MinScore
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1::text IS NULL OR UPPER(status) = $1)
			AND ($2::text IS NULL OR UPPER(COALESCE(region, '')) = $2)
			AND ($3::text IS NULL OR UPPER(COALESCE(segment, '')) = $3)
			AND ($4::int IS NULL OR score >= $4)
		ORDER BY updated_at DESC NULLS LAST, created_at DESC NULLS LAST`

	rows, err := r.pool.Query(ctx, query, statusParam, regionParam, segmentParam, minScoreParam)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return collectLeads(rows)
}

// All retrieves every lead, most recently touched first. Used by the board
// view and the duplicate grouper.
func (r *Repository) All(ctx context.Context) ([]Lead, error) {
	return r.List(ctx, ListParams{})
}

// UpdateFields applies a partial update to a lead's identity fields
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, patch FieldPatch) (*Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", patch.Name)
	add("whatsapp", patch.WhatsApp)
	add("email", patch.Email)
	add("region", patch.Region)
	add("city", patch.City)
	add("segment", patch.Segment)
	add("budget_band", patch.BudgetBand)
	add("timeframe_band", patch.TimeframeBand)

	query := `UPDATE leads SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + leadColumns
	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return lead, nil
}

// Delete removes a lead (cascade deletes events, notes and board state)
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// UpdateScore persists a full scoring outcome
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, update ScoreUpdate) (*Lead, error) {
	query := `
		UPDATE leads SET
			score = $2, status = $3, crm_stage = $4,
			score_reasons = $5, score_meta = $6,
			score_engine = $7, score_model_name = $8, score_probability = $9,
			score_scored_at = $10, updated_at = now()
		WHERE id = $1
		RETURNING ` + leadColumns

	reasons := update.Reasons
	if reasons == nil {
		reasons = []domain.Reason{}
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		id, update.Score, string(update.Status), string(update.Stage),
		reasons, update.Meta,
		nullable(update.Engine), nullable(update.ModelName), update.Probability,
		update.ScoredAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to update lead score: %w", err)
	}
	return lead, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SaveNextAction stores a follow-up on a lead. next_action_at is derived
// from the date plus the time (midnight when no time is given).
func (r *Repository) SaveNextAction(ctx context.Context, id uuid.UUID, action domain.NextAction) (*Lead, error) {
	query := `
		UPDATE leads SET
			next_action_text = $2,
			next_action_date = $3::date,
			next_action_time = $4,
			next_action_at = CASE
				WHEN $3::date IS NOT NULL THEN ($3::date + COALESCE($4::time, time '00:00'))
				ELSE NULL
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		id, nullable(action.Text), nullable(action.Date), nullable(action.Time),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to save next action: %w", err)
	}
	return lead, nil
}

// ClearNextAction removes a lead's scheduled follow-up
func (r *Repository) ClearNextAction(ctx context.Context, id uuid.UUID) (*Lead, error) {
	return r.SaveNextAction(ctx, id, domain.NextAction{})
}

// FindIntakeCandidates fetches recent leads whose mandatory identity
// fields match an inbound submission. The SQL prefilter is coarse; the
// caller applies the full identity comparison.
func (r *Repository) FindIntakeCandidates(ctx context.Context, name, region, segment string, windowMinutes int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE UPPER(TRIM(name)) = UPPER(TRIM($1))
			AND UPPER(COALESCE(TRIM(region), '')) = UPPER(COALESCE(TRIM($2), ''))
			AND UPPER(COALESCE(TRIM(segment), '')) = UPPER(TRIM($3))
			AND created_at >= now() - ($4::int * interval '1 minute')
		ORDER BY created_at DESC
		LIMIT 20`

	rows, err := r.pool.Query(ctx, query, name, region, segment, windowMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to query intake candidates: %w", err)
	}
	return collectLeads(rows)
}

// ── Events ────────────────────────────────────────────────────────────────────

// InsertEvent appends an audit event to a lead's timeline
func (r *Repository) InsertEvent(ctx context.Context, leadID uuid.UUID, eventType string, metadata map[string]any) (*Event, error) {
	query := `
		INSERT INTO events (lead_id, event_type, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, lead_id, event_type, metadata, created_at`

	var e Event
	err := r.pool.QueryRow(ctx, query, leadID, eventType, metadata).Scan(
		&e.ID, &e.LeadID, &e.EventType, &e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return &e, nil
}

// ListEvents retrieves a lead's audit events, newest first
func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, lead_id, event_type, metadata, created_at
		FROM events
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.LeadID, &e.EventType, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ListEventsChronological retrieves a lead's full audit history oldest
// first, the order the external scorer expects.
func (r *Repository) ListEventsChronological(ctx context.Context, leadID uuid.UUID) ([]Event, error) {
	query := `
		SELECT id, lead_id, event_type, metadata, created_at
		FROM events
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.LeadID, &e.EventType, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ── Notes ─────────────────────────────────────────────────────────────────────

// InsertNote stores a free-text note or an encoded follow-up note
func (r *Repository) InsertNote(ctx context.Context, note *Note) error {
	query := `
		INSERT INTO lead_notes (lead_id, note_type, note_text, action_date, action_time)
		VALUES ($1, $2, $3, $4::date, $5::time)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		note.LeadID, note.NoteType, note.NoteText, note.ActionDate, note.ActionTime,
	).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// ListNotes retrieves a lead's notes, newest first
func (r *Repository) ListNotes(ctx context.Context, leadID uuid.UUID) ([]Note, error) {
	query := `
		SELECT id, lead_id, note_type, note_text,
			to_char(action_date, 'YYYY-MM-DD'), to_char(action_time, 'HH24:MI'), created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.NoteType, &n.NoteText, &n.ActionDate, &n.ActionTime, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// ── CRM board state ───────────────────────────────────────────────────────────

// GetCRMState retrieves a lead's board state, nil when none exists
func (r *Repository) GetCRMState(ctx context.Context, leadID uuid.UUID) (*CRMState, error) {
	query := `
		SELECT lead_id, stage, position, next_action_text, next_action_at, updated_at
		FROM crm_lead_state
		WHERE lead_id = $1`

	var s CRMState
	err := r.pool.QueryRow(ctx, query, leadID).Scan(
		&s.LeadID, &s.Stage, &s.Position, &s.NextActionText, &s.NextActionAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crm state: %w", err)
	}
	return &s, nil
}

// UpsertCRMState stores a lead's board column. The stored position is
// preserved on update; a fresh row starts at position 0.
func (r *Repository) UpsertCRMState(ctx context.Context, leadID uuid.UUID, stage domain.Stage) error {
	query := `
		INSERT INTO crm_lead_state (lead_id, stage, position, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (lead_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, leadID, string(stage)); err != nil {
		return fmt.Errorf("failed to upsert crm state: %w", err)
	}
	return nil
}
