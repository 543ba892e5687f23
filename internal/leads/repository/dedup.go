package repository

import (
	"context"
	"fmt"
	"strings"

	"leaddesk_backend/internal/leads/domain"
)

// MergeStats counts the rows touched by one reconciliation transaction.
type MergeStats struct {
	Events        int64 `json:"events"`
	Notes         int64 `json:"lead_notes"`
	StatePromoted int64 `json:"crm_lead_state_promoted"`
	StateRemoved  int64 `json:"crm_lead_state_removed"`
	DeletedLeads  int64 `json:"deleted_leads"`
}

// Reconcile folds duplicate leads into their keepers in a single
// transaction: events and notes are re-owned by the keeper, board state
// is promoted only when the keeper has none of its own, and the duplicate
// rows are removed. Either everything applies or nothing does.
func (r *Repository) Reconcile(ctx context.Context, pairs []domain.DuplicatePair) (MergeStats, error) {
	var stats MergeStats
	if len(pairs) == 0 {
		return stats, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`CREATE TEMP TABLE tmp_lead_dedup_map (dup_id uuid PRIMARY KEY, keep_id uuid NOT NULL) ON COMMIT DROP`,
	); err != nil {
		return stats, fmt.Errorf("failed to create dedup map: %w", err)
	}

	args := make([]any, 0, len(pairs)*2)
	tuples := make([]string, 0, len(pairs))
	for i, pair := range pairs {
		args = append(args, pair.DupID, pair.KeepID)
		tuples = append(tuples, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO tmp_lead_dedup_map (dup_id, keep_id) VALUES `+strings.Join(tuples, ","),
		args...,
	); err != nil {
		return stats, fmt.Errorf("failed to fill dedup map: %w", err)
	}

	eventsTag, err := tx.Exec(ctx, `
		UPDATE events e
		SET lead_id = m.keep_id
		FROM tmp_lead_dedup_map m
		WHERE e.lead_id = m.dup_id`)
	if err != nil {
		return stats, fmt.Errorf("failed to migrate events: %w", err)
	}
	stats.Events = eventsTag.RowsAffected()

	notesTag, err := tx.Exec(ctx, `
		UPDATE lead_notes n
		SET lead_id = m.keep_id
		FROM tmp_lead_dedup_map m
		WHERE n.lead_id = m.dup_id`)
	if err != nil {
		return stats, fmt.Errorf("failed to migrate notes: %w", err)
	}
	stats.Notes = notesTag.RowsAffected()

	// The keeper's own board state wins; a duplicate's state only fills a gap.
	promoteTag, err := tx.Exec(ctx, `
		INSERT INTO crm_lead_state (lead_id, stage, position, next_action_text, next_action_at, updated_at)
		SELECT m.keep_id, s.stage, s.position, s.next_action_text, s.next_action_at, s.updated_at
		FROM crm_lead_state s
		JOIN tmp_lead_dedup_map m ON m.dup_id = s.lead_id
		WHERE NOT EXISTS (
			SELECT 1 FROM crm_lead_state k WHERE k.lead_id = m.keep_id
		)
		ON CONFLICT (lead_id) DO NOTHING`)
	if err != nil {
		return stats, fmt.Errorf("failed to promote crm state: %w", err)
	}
	stats.StatePromoted = promoteTag.RowsAffected()

	removeStateTag, err := tx.Exec(ctx, `
		DELETE FROM crm_lead_state
		WHERE lead_id IN (SELECT dup_id FROM tmp_lead_dedup_map)`)
	if err != nil {
		return stats, fmt.Errorf("failed to remove duplicate crm state: %w", err)
	}
	stats.StateRemoved = removeStateTag.RowsAffected()

	deleteTag, err := tx.Exec(ctx, `
		DELETE FROM leads
		WHERE id IN (SELECT dup_id FROM tmp_lead_dedup_map)`)
	if err != nil {
		return stats, fmt.Errorf("failed to delete duplicate leads: %w", err)
	}
	stats.DeletedLeads = deleteTag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("failed to commit dedup transaction: %w", err)
	}
	return stats, nil
}
