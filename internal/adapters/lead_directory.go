// Package adapters contains anti-corruption adapters for cross-context
// communication, keeping each bounded context on its own interfaces.
package adapters

import (
	"context"

	leadservice "leaddesk_backend/internal/leads/service"
	partnerdomain "leaddesk_backend/internal/partners/domain"

	"github.com/google/uuid"
)

// LeadDirectoryAdapter exposes leads to the partner matcher without the
// partners context importing the leads context.
type LeadDirectoryAdapter struct {
	svc *leadservice.Service
}

// NewLeadDirectoryAdapter creates the adapter around the leads service.
func NewLeadDirectoryAdapter(svc *leadservice.Service) *LeadDirectoryAdapter {
	return &LeadDirectoryAdapter{svc: svc}
}

// Profile resolves the matching profile of a lead.
func (a *LeadDirectoryAdapter) Profile(ctx context.Context, id uuid.UUID) (partnerdomain.LeadProfile, error) {
	lead, err := a.svc.Get(ctx, id)
	if err != nil {
		return partnerdomain.LeadProfile{}, err
	}
	return partnerdomain.LeadProfile{
		Segment: lead.Segment,
		Region:  lead.Region,
		City:    lead.City,
	}, nil
}
