package alerting

import (
	"context"
	"net/http"

	"crm_portal_backend/internal/events"
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/platform/httpkit"
	"crm_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the alerting bounded context module implementing http.Module.
type Module struct {
	service *Service
	log     *logger.Logger
}

// NewModule creates the alerting module and subscribes it to automation
// events so send failures and pauses surface as in-app notifications.
func NewModule(pool *pgxpool.Pool, sweeper Sweeper, mailer Mailer, notify Notifier, bus events.Bus, cfg Config, log *logger.Logger) *Module {
	admins := NewAdminRepository(pool)
	svc := NewService(admins, mailer, notify, sweeper, cfg, log)

	m := &Module{
		service: svc,
		log:     log,
	}
	m.subscribe(bus)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "alerting"
}

// Service returns the dispatcher for scheduler wiring.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the on-demand dispatch endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/alerts")
	group.POST("/dispatch", m.handleDispatch)
}

// handleDispatch runs a sweep-and-alert pass on demand, outside the scheduler.
func (m *Module) handleDispatch(c *gin.Context) {
	summary, err := m.service.SweepAndDispatch(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alertingLeads":   summary.AlertingLeads,
		"totalAdmins":     summary.TotalAdmins,
		"successfulSends": summary.SuccessfulSends,
		"failedSends":     summary.FailedSends,
	})
}

func (m *Module) subscribe(bus events.Bus) {
	bus.Subscribe(events.AutomationSendFailed{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.AutomationSendFailed)
		if !ok {
			return nil
		}
		return m.service.NotifySendFailure(ctx, evt)
	}))

	bus.Subscribe(events.AutomationPaused{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.AutomationPaused)
		if !ok {
			return nil
		}
		return m.service.NotifyAutomationPaused(ctx, evt)
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
