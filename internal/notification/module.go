// Package notification provides the in-app notification bounded context module.
package notification

import (
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/internal/notification/handler"
	"crm_portal_backend/internal/notification/inapp"
	"crm_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	inapp   *inapp.Service
}

// NewModule creates and initializes the notification module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	svc := inapp.NewService(repo, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		inapp:   svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// InApp returns the in-app notification service for cross-module wiring.
func (m *Module) InApp() *inapp.Service {
	return m.inapp
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
