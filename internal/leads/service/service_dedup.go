package service

import (
	"context"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/transport"
)

const dedupSampleSize = 5

// DedupScan groups the whole lead table into duplicate clusters and,
// unless dryRun is set, reconciles them in one transaction: dependents
// re-owned by the keeper, duplicate rows removed. windowMinutes <= 0
// falls back to the configured window.
func (s *Service) DedupScan(ctx context.Context, windowMinutes int, dryRun bool) (*transport.DedupScanResponse, error) {
	if windowMinutes <= 0 {
		windowMinutes = s.windowMinutes
	}
	window := domain.ClampWindowMinutes(windowMinutes)

	leads, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.Candidate, len(leads))
	for i := range leads {
		candidates[i] = leads[i].Candidate()
	}

	pairs := domain.GroupDuplicates(candidates, window)

	groupKeys := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		groupKeys[p.Key] = true
	}

	sample := make([]transport.DedupPairResponse, 0, dedupSampleSize)
	for _, p := range pairs {
		if len(sample) == dedupSampleSize {
			break
		}
		sample = append(sample, transport.DedupPairResponse{DupID: p.DupID, KeepID: p.KeepID})
	}

	resp := &transport.DedupScanResponse{
		OK:              true,
		DryRun:          dryRun,
		WindowMinutes:   window,
		BeforeLeads:     len(leads),
		DuplicateGroups: len(groupKeys),
		DuplicatedRows:  len(pairs),
		RowsToDelete:    len(pairs),
		AfterLeads:      int64(len(leads)),
		Sample:          sample,
	}

	if !dryRun && len(pairs) > 0 {
		stats, err := s.repo.Reconcile(ctx, pairs)
		if err != nil {
			return nil, err
		}
		resp.Migrated = stats
		resp.DeletedLeads = stats.DeletedLeads
		resp.AfterLeads = int64(len(leads)) - stats.DeletedLeads
	}

	s.log.DedupRun(dryRun, window, len(groupKeys), int(resp.DeletedLeads))
	s.publish(ctx, events.DedupScanCompleted{
		BaseEvent:     events.NewBaseEvent(),
		DryRun:        dryRun,
		WindowMinutes: window,
		Groups:        len(groupKeys),
		RowsDeleted:   int(resp.DeletedLeads),
	})

	return resp, nil
}
