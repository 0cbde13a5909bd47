package http

import (
	"context"

	"crm_portal_backend/internal/events"
	"crm_portal_backend/platform/config"
	"crm_portal_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router needs: listen/CORS
// settings plus the JWT secret for the auth middleware.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers the readiness probe. The pgx pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands the router: shared infrastructure
// plus the modules to mount.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
