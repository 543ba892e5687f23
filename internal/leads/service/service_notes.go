package service

import (
	"context"
	"errors"

	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/sanitize"

	"github.com/google/uuid"
)

// AppendEvent appends a raw audit event to a lead's timeline.
func (s *Service) AppendEvent(ctx context.Context, req transport.AppendEventRequest) (*transport.EventResponse, error) {
	if _, err := s.repo.GetByID(ctx, req.LeadID); err != nil {
		return nil, err
	}
	event, err := s.repo.InsertEvent(ctx, req.LeadID, req.EventType, req.Metadata)
	if err != nil {
		return nil, err
	}
	resp := transport.NewEventResponse(*event)
	return &resp, nil
}

// ListEvents returns a lead's audit timeline, newest first.
func (s *Service) ListEvents(ctx context.Context, leadID uuid.UUID, limit int) (*transport.EventListResponse, error) {
	events, err := s.repo.ListEvents(ctx, leadID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]transport.EventResponse, len(events))
	for i, e := range events {
		items[i] = transport.NewEventResponse(e)
	}
	return &transport.EventListResponse{Items: items}, nil
}

// AddNote stores a note on a lead. A note carrying a follow-up schedule,
// either through the explicit action fields or the legacy
// "NEXT_ACTION|date|time|text" encoding, also updates the lead's
// follow-up snapshot.
func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, req transport.AddNoteRequest) (*transport.NoteResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return nil, err
	}

	text := sanitize.Text(req.Note)
	if text == "" {
		return nil, apperr.BadRequest("note is required")
	}

	note := &repository.Note{
		LeadID:   leadID,
		NoteType: "NOTE",
		NoteText: text,
	}

	var action domain.NextAction
	if legacy, ok := domain.ParseLegacyNote(text); ok {
		action = legacy
	} else if req.ActionDate != "" || req.ActionTime != "" {
		parsed, err := domain.NewNextAction(text, req.ActionDate, req.ActionTime)
		if err != nil {
			return nil, nextActionErr(err)
		}
		action = parsed
	}

	if !action.IsZero() {
		note.NoteType = "NEXT_ACTION"
		note.ActionDate = optional(action.Date)
		note.ActionTime = optional(action.Time)
		if _, err := s.repo.SaveNextAction(ctx, leadID, action); err != nil {
			return nil, err
		}
	}

	if err := s.repo.InsertNote(ctx, note); err != nil {
		return nil, err
	}
	resp := transport.NewNoteResponse(*note)
	return &resp, nil
}

// ListNotes returns a lead's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, leadID uuid.UUID) (*transport.NoteListResponse, error) {
	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return nil, err
	}
	items := make([]transport.NoteResponse, len(notes))
	for i, n := range notes {
		items[i] = transport.NewNoteResponse(n)
	}
	return &transport.NoteListResponse{Items: items}, nil
}

// GetNextAction returns a lead's scheduled follow-up, or an empty block
// when none is set.
func (s *Service) GetNextAction(ctx context.Context, leadID uuid.UUID) (*transport.NextActionResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	resp := transport.NewLeadResponse(lead).NextAction
	if resp == nil {
		resp = &transport.NextActionResponse{}
	}
	return resp, nil
}

// SaveNextAction saves, replaces or clears a lead's scheduled follow-up
// and records the change on the audit timeline.
func (s *Service) SaveNextAction(ctx context.Context, leadID uuid.UUID, req transport.NextActionRequest) (*transport.LeadResponse, error) {
	if req.Clear {
		return s.clearNextAction(ctx, leadID)
	}

	action, err := domain.NewNextAction(sanitize.Text(req.Text), req.Date, req.Time)
	if err != nil {
		return nil, nextActionErr(err)
	}

	lead, err := s.repo.SaveNextAction(ctx, leadID, action)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.InsertEvent(ctx, leadID, "next_action_saved", map[string]any{
		"source":           "crm_ui",
		"next_action_text": action.Text,
		"next_action_date": action.Date,
		"next_action_time": action.Time,
	}); err != nil {
		return nil, err
	}

	resp := transport.NewLeadResponse(lead)
	return &resp, nil
}

// ClearNextAction removes a lead's scheduled follow-up.
func (s *Service) ClearNextAction(ctx context.Context, leadID uuid.UUID) (*transport.LeadResponse, error) {
	return s.clearNextAction(ctx, leadID)
}

func (s *Service) clearNextAction(ctx context.Context, leadID uuid.UUID) (*transport.LeadResponse, error) {
	lead, err := s.repo.ClearNextAction(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.InsertEvent(ctx, leadID, "next_action_cleared", map[string]any{
		"source": "crm_ui",
	}); err != nil {
		return nil, err
	}
	resp := transport.NewLeadResponse(lead)
	return &resp, nil
}

func nextActionErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidActionDate),
		errors.Is(err, domain.ErrInvalidActionTime),
		errors.Is(err, domain.ErrTimeWithoutDate),
		errors.Is(err, domain.ErrEmptyNextAction):
		return apperr.BadRequest(err.Error())
	}
	return err
}
