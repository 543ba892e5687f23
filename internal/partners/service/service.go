// Package service implements partner roster management and lead routing.
package service

import (
	"context"
	"strings"
	"time"

	"leaddesk_backend/internal/partners/cache"
	"leaddesk_backend/internal/partners/domain"
	"leaddesk_backend/internal/partners/repository"
	"leaddesk_backend/internal/partners/transport"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/textfold"

	"github.com/google/uuid"
)

// LeadDirectory resolves the matching profile of a lead. Implemented by
// the leads context so the partner matcher stays decoupled from it.
type LeadDirectory interface {
	Profile(ctx context.Context, id uuid.UUID) (domain.LeadProfile, error)
}

// Service provides business logic for partners
type Service struct {
	repo   *repository.Repository
	roster *cache.Cache
	leads  LeadDirectory
	log    *logger.Logger
}

// New creates a new partners service
func New(repo *repository.Repository, roster *cache.Cache, leads LeadDirectory, log *logger.Logger) *Service {
	return &Service{repo: repo, roster: roster, leads: leads, log: log}
}

func (s *Service) activeRoster(ctx context.Context) ([]domain.Partner, error) {
	return s.roster.Get(ctx, func(ctx context.Context) ([]domain.Partner, error) {
		rows, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		partners := make([]domain.Partner, len(rows))
		for i := range rows {
			partners[i] = rows[i].Domain()
		}
		return partners, nil
	})
}

// Match ranks partners for a lead. A lead without a segment gets an
// empty result, not an error.
func (s *Service) Match(ctx context.Context, leadID uuid.UUID, limit int) (*transport.MatchResponse, error) {
	profile, err := s.leads.Profile(ctx, leadID)
	if err != nil {
		return nil, err
	}

	resp := &transport.MatchResponse{
		LeadID:  leadID,
		Segment: textfold.Upper(profile.Segment),
		Items:   []transport.MatchItemResponse{},
	}
	if resp.Segment == "" {
		return resp, nil
	}

	partners, err := s.activeRoster(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range domain.MatchPartners(profile, partners, limit) {
		item := transport.MatchItemResponse{
			PartnerID: m.Partner.ID,
			Name:      m.Partner.Name,
			Segment:   m.Partner.Segment,
			Region:    m.Partner.Region,
			City:      m.Partner.City,
			Priority:  m.Partner.Priority,
			Tier:      m.Tier,
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// Create registers a partner and drops the roster cache.
func (s *Service) Create(ctx context.Context, req transport.CreatePartnerRequest) (*transport.PartnerResponse, error) {
	partner := &repository.Partner{
		ID:                 uuid.New(),
		LegalName:          strings.TrimSpace(req.LegalName),
		TradeName:          optional(strings.TrimSpace(req.TradeName)),
		TaxID:              optional(digitsOnly(req.TaxID)),
		ClassificationCode: optional(strings.TrimSpace(req.ClassificationCode)),
		Segment:            textfold.Upper(req.Segment),
		Region:             optional(strings.ToUpper(strings.TrimSpace(req.Region))),
		City:               optional(strings.TrimSpace(req.City)),
		Priority:           req.Priority,
		Active:             true,
		ContactEmail:       optional(strings.TrimSpace(req.ContactEmail)),
		ContactWhatsApp:    optional(strings.TrimSpace(req.ContactWhatsApp)),
		CreatedAt:          time.Now(),
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		return nil, err
	}
	s.roster.Invalidate(ctx)

	resp := transport.NewPartnerResponse(partner)
	return &resp, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// digitsOnly strips the punctuation tax ids usually arrive with, so the
// stored value compares regardless of formatting.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Get returns a single partner.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.PartnerResponse, error) {
	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.NewPartnerResponse(partner)
	return &resp, nil
}

// List returns every partner, active or not.
func (s *Service) List(ctx context.Context) (*transport.PartnerListResponse, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]transport.PartnerResponse, len(rows))
	for i := range rows {
		items[i] = transport.NewPartnerResponse(&rows[i])
	}
	return &transport.PartnerListResponse{Items: items}, nil
}

// SetActive toggles a partner's availability and drops the roster cache.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*transport.PartnerResponse, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.roster.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Summary reports partner coverage per segment.
func (s *Service) Summary(ctx context.Context) (*transport.SummaryResponse, error) {
	counts, err := s.repo.SegmentSummary(ctx)
	if err != nil {
		return nil, err
	}
	segments := make([]transport.SegmentSummaryResponse, len(counts))
	for i, c := range counts {
		segments[i] = transport.SegmentSummaryResponse{
			Segment: c.Segment,
			Total:   c.Total,
			Active:  c.Active,
		}
	}
	return &transport.SummaryResponse{Segments: segments}, nil
}
