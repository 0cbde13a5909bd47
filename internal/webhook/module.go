package webhook

import (
	"crm_portal_backend/internal/events"
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leads LeadSource, autos AutomationControl, dedupe Deduper, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(leads, autos, dedupe, eventBus, log)
	h := NewHandler(svc, repo, val)

	return &Module{
		handler: h,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public ingestion endpoint (API key auth, no JWT)
	eventsGroup := ctx.V1.Group("/webhook")
	eventsGroup.Use(APIKeyAuthMiddleware(m.repo))
	eventsGroup.POST("/events", m.handler.HandleEvent)

	// Key management (JWT auth)
	keysGroup := ctx.Protected.Group("/webhook/keys")
	keysGroup.POST("", m.handler.HandleCreateAPIKey)
	keysGroup.GET("", m.handler.HandleListAPIKeys)
	keysGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
