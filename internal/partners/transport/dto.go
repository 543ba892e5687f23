// Package transport defines the request and response shapes of the
// partners HTTP API.
package transport

import (
	"time"

	"leaddesk_backend/internal/partners/repository"

	"github.com/google/uuid"
)

// CreatePartnerRequest registers a routing partner.
type CreatePartnerRequest struct {
	LegalName          string `json:"legal_name" validate:"required,min=1,max=160"`
	TradeName          string `json:"trade_name" validate:"omitempty,max=160"`
	TaxID              string `json:"tax_id" validate:"omitempty,max=20"`
	ClassificationCode string `json:"classification_code" validate:"omitempty,max=20"`
	Segment            string `json:"segment" validate:"required,min=1,max=40"`
	Region             string `json:"region" validate:"omitempty,max=2"`
	City               string `json:"city" validate:"omitempty,max=120"`
	Priority           *int   `json:"priority" validate:"omitempty,min=0,max=998"`
	ContactEmail       string `json:"contact_email" validate:"omitempty,email,max=180"`
	ContactWhatsApp    string `json:"contact_whatsapp" validate:"omitempty,max=32"`
}

// SetActiveRequest toggles a partner's availability for matching.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PartnerResponse is the serialized partner. Name is the display name:
// trade name when present, legal name otherwise.
type PartnerResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	LegalName          string     `json:"legal_name"`
	TradeName          string     `json:"trade_name,omitempty"`
	TaxID              string     `json:"tax_id,omitempty"`
	ClassificationCode string     `json:"classification_code,omitempty"`
	Segment            string     `json:"segment"`
	Region             string     `json:"region,omitempty"`
	City               string     `json:"city,omitempty"`
	Priority           *int       `json:"priority,omitempty"`
	Active             bool       `json:"active"`
	ContactEmail       string     `json:"contact_email,omitempty"`
	ContactWhatsApp    string     `json:"contact_whatsapp,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewPartnerResponse serializes a partner row.
func NewPartnerResponse(p *repository.Partner) PartnerResponse {
	return PartnerResponse{
		ID:                 p.ID,
		Name:               p.DisplayName(),
		LegalName:          p.LegalName,
		TradeName:          strOrEmpty(p.TradeName),
		TaxID:              strOrEmpty(p.TaxID),
		ClassificationCode: strOrEmpty(p.ClassificationCode),
		Segment:            p.Segment,
		Region:             strOrEmpty(p.Region),
		City:               strOrEmpty(p.City),
		Priority:           p.Priority,
		Active:             p.Active,
		ContactEmail:       strOrEmpty(p.ContactEmail),
		ContactWhatsApp:    strOrEmpty(p.ContactWhatsApp),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// PartnerListResponse wraps a partner listing.
type PartnerListResponse struct {
	Items []PartnerResponse `json:"items"`
}

// MatchItemResponse is one ranked match.
type MatchItemResponse struct {
	PartnerID uuid.UUID `json:"partner_id"`
	Name      string    `json:"name"`
	Segment   string    `json:"segment"`
	Region    string    `json:"region,omitempty"`
	City      string    `json:"city,omitempty"`
	Priority  *int      `json:"priority,omitempty"`
	Tier      int       `json:"tier"`
}

// MatchResponse is the ranked partner list for one lead.
type MatchResponse struct {
	LeadID  uuid.UUID           `json:"lead_id"`
	Segment string              `json:"segment,omitempty"`
	Items   []MatchItemResponse `json:"items"`
}

// SegmentSummaryResponse is partner coverage for one segment.
type SegmentSummaryResponse struct {
	Segment string `json:"segment"`
	Total   int    `json:"total"`
	Active  int    `json:"active"`
}

// SummaryResponse is the partner coverage report.
type SummaryResponse struct {
	Segments []SegmentSummaryResponse `json:"segments"`
}
