// Package service implements the lead lifecycle use cases: intake with
// identity-based merge, listing, rule application, manual board moves,
// duplicate reconciliation and external scoring.
package service

import (
	"context"
	"strings"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/internal/scoring"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/phone"

	"github.com/google/uuid"
)

// Service provides business logic for leads
type Service struct {
	repo          *repository.Repository
	rules         *domain.RuleSet
	scorer        *scoring.Client
	log           *logger.Logger
	bus           events.Bus // optional — nil means no event publication
	windowMinutes int
}

// New creates a new leads service
func New(repo *repository.Repository, rules *domain.RuleSet, scorer *scoring.Client, cfg config.DedupeConfig, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		rules:         rules,
		scorer:        scorer,
		log:           log,
		windowMinutes: domain.ClampWindowMinutes(cfg.GetDedupeWindowMinutes()),
	}
}

// SetEventBus injects the event bus (set after construction to break circular deps).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// CreateOrMerge runs intake: a submission matching a recent lead by
// normalized identity is folded into it instead of creating a new row.
func (s *Service) CreateOrMerge(ctx context.Context, req transport.CreateLeadRequest) (*transport.CreateLeadResponse, error) {
	name := strings.TrimSpace(req.Name)
	region := strings.ToUpper(strings.TrimSpace(req.Region))
	segment := strings.ToUpper(strings.TrimSpace(req.Segment))
	req.WhatsApp = phone.NormalizeE164(req.WhatsApp)

	identity := domain.NewIdentity(
		name, region, req.City, segment, req.BudgetBand, req.TimeframeBand, req.Email, req.WhatsApp,
	)

	candidates, err := s.repo.FindIntakeCandidates(ctx, name, region, segment, s.windowMinutes)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		existing := &candidates[i]
		if identity.Matches(existing.Identity()) {
			s.publish(ctx, events.LeadDeduplicated{
				BaseEvent:     events.NewBaseEvent(),
				LeadID:        existing.ID,
				WindowMinutes: s.windowMinutes,
			})
			return &transport.CreateLeadResponse{
				Lead:                transport.NewLeadResponse(existing),
				Deduplicated:        true,
				DedupeWindowMinutes: s.windowMinutes,
			}, nil
		}
	}

	lead := &repository.Lead{
		ID:            uuid.New(),
		Name:          name,
		WhatsApp:      optional(req.WhatsApp),
		Email:         optional(req.Email),
		Region:        optional(region),
		City:          optional(strings.TrimSpace(req.City)),
		Segment:       optional(segment),
		BudgetBand:    optional(strings.TrimSpace(req.BudgetBand)),
		TimeframeBand: optional(strings.TrimSpace(req.TimeframeBand)),
		Status:        string(domain.StatusCurious),
		Score:         0,
		ScoreReasons:  []domain.Reason{},
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Segment:   segment,
	})

	return &transport.CreateLeadResponse{
		Lead:                transport.NewLeadResponse(lead),
		Deduplicated:        false,
		DedupeWindowMinutes: s.windowMinutes,
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.NewLeadResponse(lead)
	return &resp, nil
}

// List returns leads matching the filters. The result is the deduplicated
// view: rows a reconciliation run would fold away are hidden.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*transport.LeadListResponse, error) {
	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &transport.LeadListResponse{Items: s.dedupedView(leads)}, nil
}

// dedupedView filters rows through the duplicate grouper and serializes
// the survivors in recency order.
func (s *Service) dedupedView(leads []repository.Lead) []transport.LeadResponse {
	byID := make(map[uuid.UUID]*repository.Lead, len(leads))
	candidates := make([]domain.Candidate, len(leads))
	for i := range leads {
		byID[leads[i].ID] = &leads[i]
		candidates[i] = leads[i].Candidate()
	}

	survivors := domain.Dedupe(candidates, s.windowMinutes)
	items := make([]transport.LeadResponse, 0, len(survivors))
	for _, c := range survivors {
		items = append(items, transport.NewLeadResponse(byID[c.ID]))
	}
	return items
}

// Update applies a partial update to a lead's identity fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (*transport.LeadResponse, error) {
	patch := repository.FieldPatch{
		Name:          trimmed(req.Name),
		WhatsApp:      normalizedPhone(req.WhatsApp),
		Email:         trimmed(req.Email),
		Region:        uppered(req.Region),
		City:          trimmed(req.City),
		Segment:       uppered(req.Segment),
		BudgetBand:    trimmed(req.BudgetBand),
		TimeframeBand: trimmed(req.TimeframeBand),
	}
	if patch.IsZero() {
		return s.Get(ctx, id)
	}
	lead, err := s.repo.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	resp := transport.NewLeadResponse(lead)
	return &resp, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func normalizedPhone(s *string) *string {
	if s == nil {
		return nil
	}
	n := phone.NormalizeE164(*s)
	return &n
}

func uppered(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.ToUpper(strings.TrimSpace(*s))
	return &t
}

// Delete removes a lead and its dependents.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Board returns the kanban view: every lead in its resolved column, with
// the duplicate view filter applied.
func (s *Service) Board(ctx context.Context) (*transport.BoardResponse, error) {
	leads, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	items := s.dedupedView(leads)

	byStage := make(map[string][]transport.LeadResponse, 4)
	for _, item := range items {
		byStage[item.CRMStage] = append(byStage[item.CRMStage], item)
	}

	columns := make([]transport.BoardColumnResponse, 0, 4)
	for _, stage := range domain.Stages() {
		leadsInStage := byStage[string(stage)]
		if leadsInStage == nil {
			leadsInStage = []transport.LeadResponse{}
		}
		columns = append(columns, transport.BoardColumnResponse{
			Stage: string(stage),
			Leads: leadsInStage,
		})
	}
	return &transport.BoardResponse{Columns: columns}, nil
}
