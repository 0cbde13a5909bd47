package quotes

import (
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the quotes module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leads LeadSource, mailer Mailer, cfg Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := New(pool)
	svc := NewService(repo, leads, mailer, cfg, log)
	h := NewHandler(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the quotes service for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts quote routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/quotes")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
