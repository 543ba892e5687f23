// Package repository provides data access for partners.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaddesk_backend/internal/partners/domain"
	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const partnerNotFoundMsg = "partner not found"

// Partner is the database model for a routing partner. LegalName and
// TradeName form the identity name pair; TradeName is what operators see.
type Partner struct {
	ID                 uuid.UUID  `db:"id"`
	LegalName          string     `db:"legal_name"`
	TradeName          *string    `db:"trade_name"`
	TaxID              *string    `db:"tax_id"`
	ClassificationCode *string    `db:"classification_code"`
	Segment            string     `db:"segment"`
	Region             *string    `db:"region"`
	City               *string    `db:"city"`
	Priority           *int       `db:"priority"`
	Active             bool       `db:"active"`
	ContactEmail       *string    `db:"contact_email"`
	ContactWhatsApp    *string    `db:"contact_whatsapp"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DisplayName is the name shown in match results: the trade name when the
// partner has one, the legal name otherwise.
func (p *Partner) DisplayName() string {
	if p.TradeName != nil && *p.TradeName != "" {
		return *p.TradeName
	}
	return p.LegalName
}

// Domain converts the row into the matcher's partner shape.
func (p *Partner) Domain() domain.Partner {
	return domain.Partner{
		ID:       p.ID,
		Name:     p.DisplayName(),
		Segment:  p.Segment,
		Region:   strOr(p.Region),
		City:     strOr(p.City),
		Priority: p.Priority,
		Active:   p.Active,
	}
}

// SegmentCount is one row of the partner coverage summary
type SegmentCount struct {
	Segment string `db:"segment"`
	Total   int    `db:"total"`
	Active  int    `db:"active"`
}

// Repository provides partner data access
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new partners repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partnerColumns = `
	id, legal_name, trade_name, tax_id, classification_code,
	segment, region, city, priority, active,
	contact_email, contact_whatsapp, created_at, updated_at`

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	err := row.Scan(
		&p.ID, &p.LegalName, &p.TradeName, &p.TaxID, &p.ClassificationCode,
		&p.Segment, &p.Region, &p.City, &p.Priority, &p.Active,
		&p.ContactEmail, &p.ContactWhatsApp, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPartners(rows pgx.Rows) ([]Partner, error) {
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partners: %w", err)
	}
	return partners, nil
}

// Create inserts a new partner
func (r *Repository) Create(ctx context.Context, p *Partner) error {
	query := `
		INSERT INTO partners (id, legal_name, trade_name, tax_id, classification_code,
			segment, region, city, priority, active,
			contact_email, contact_whatsapp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.LegalName, p.TradeName, p.TaxID, p.ClassificationCode,
		p.Segment, p.Region, p.City, p.Priority, p.Active,
		p.ContactEmail, p.ContactWhatsApp, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create partner: %w", err)
	}
	return nil
}

// GetByID retrieves a partner by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`

	p, err := scanPartner(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(partnerNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

// ListActive retrieves all active partners
func (r *Repository) ListActive(ctx context.Context) ([]Partner, error) {
	query := `
		SELECT ` + partnerColumns + `
		FROM partners
		WHERE active
		ORDER BY segment, COALESCE(priority, 999), COALESCE(trade_name, legal_name)`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active partners: %w", err)
	}
	return collectPartners(rows)
}

// All retrieves every partner, active or not
func (r *Repository) All(ctx context.Context) ([]Partner, error) {
	query := `
		SELECT ` + partnerColumns + `
		FROM partners
		ORDER BY segment, COALESCE(priority, 999), COALESCE(trade_name, legal_name)`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	return collectPartners(rows)
}

// SetActive toggles a partner's availability for matching
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE partners SET active = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(partnerNotFoundMsg)
	}
	return nil
}

// SegmentSummary reports partner coverage per segment
func (r *Repository) SegmentSummary(ctx context.Context) ([]SegmentCount, error) {
	query := `
		SELECT segment,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE active) AS active
		FROM partners
		GROUP BY segment
		ORDER BY segment`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner summary: %w", err)
	}
	defer rows.Close()

	var counts []SegmentCount
	for rows.Next() {
		var c SegmentCount
		if err := rows.Scan(&c.Segment, &c.Total, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan partner summary: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partner summary: %w", err)
	}
	return counts, nil
}
