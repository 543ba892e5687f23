// Package partners provides the partner routing bounded context module.
package partners

import (
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/partners/cache"
	"leaddesk_backend/internal/partners/handler"
	"leaddesk_backend/internal/partners/repository"
	"leaddesk_backend/internal/partners/service"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module represents the partners domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new partners module with all dependencies wired.
// rdb may be nil; the roster cache then runs memory-only.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, cfg config.PartnersConfig, leads service.LeadDirectory, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	roster := cache.New(cfg.GetPartnerCacheTTL(), rdb, log)
	svc := service.New(repo, roster, leads, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "partners"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/partners"))
	m.handler.RegisterMatchRoutes(ctx.V1.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
