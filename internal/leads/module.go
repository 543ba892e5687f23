// Package leads provides the lead lifecycle bounded context module:
// intake, deduplication, the stage/score state machine and scoring.
package leads

import (
	"context"
	"fmt"

	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/handler"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/service"
	"leaddesk_backend/internal/scoring"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the slice of application configuration the module needs.
type Config interface {
	config.DedupeConfig
	config.ScoringConfig
	config.RulesConfig
}

// Module represents the leads domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
	dedup   handler.DedupEnqueuer
}

// NewModule creates a new leads module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg Config, log *logger.Logger, val *validator.Validator) (*Module, error) {
	rules, err := domain.LoadRules(cfg.GetRulesFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load rule catalog: %w", err)
	}

	repo := repository.New(pool)
	scorer := scoring.New(cfg, log)
	svc := service.New(repo, rules, scorer, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, log: log}, nil
}

// SetEventBus injects the event bus into the service layer.
func (m *Module) SetEventBus(bus events.Bus) {
	m.service.SetEventBus(bus)
}

// SetDedupEnqueuer injects the background queue client. Optional; without
// it duplicate scans only run inline.
func (m *Module) SetDedupEnqueuer(enq handler.DedupEnqueuer) {
	m.dedup = enq
	m.handler.SetDedupEnqueuer(enq)
}

// RegisterHandlers subscribes to domain events for lifecycle audit logging
// and follow-up reconciliation.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadDeduplicated{}.EventName(), m)
	bus.Subscribe(events.DedupScanCompleted{}.EventName(), m)
}

// Handle routes events to the appropriate reaction.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadDeduplicated:
		m.log.Info("intake folded submission into existing lead",
			"lead_id", e.LeadID,
			"window_minutes", e.WindowMinutes,
		)
		if m.dedup != nil {
			// A duplicate surfacing at intake hints there may be more; queue
			// a dry scan so the report lands in the worker log.
			return m.dedup.EnqueueDedupScan(ctx, e.WindowMinutes, true)
		}
	case events.DedupScanCompleted:
		m.log.Info("duplicate scan completed",
			"dry_run", e.DryRun,
			"window_minutes", e.WindowMinutes,
			"groups", e.Groups,
			"rows_deleted", e.RowsDeleted,
		)
	}
	return nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
	m.handler.RegisterBoardRoutes(ctx.V1.Group("/crm"))
	m.handler.RegisterEventRoutes(ctx.V1.Group("/events"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
