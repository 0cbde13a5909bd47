package automation

import (
	"context"

	"crm_portal_backend/internal/events"
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	handler    *Handler
	repository *Repository
	service    *Service
	log        *logger.Logger
}

// NewModule creates the automation module and subscribes it to the lead
// lifecycle events that drive sequence seeding and teardown.
func NewModule(pool *pgxpool.Pool, leads LeadSource, mailer Mailer, sequences SequenceSet, bus events.Bus, cfg Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leads, mailer, sequences, bus, cfg, log)
	h := NewHandler(svc, val)

	m := &Module{
		handler:    h,
		repository: repo,
		service:    svc,
		log:        log,
	}
	m.subscribe(bus)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Service returns the automation service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/automation")
	m.handler.RegisterRoutes(group)
}

// subscribe wires the lead lifecycle into the engine: creation and stage
// changes seed a fresh sequence, archival stops it for good.
func (m *Module) subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.LeadCreated)
		if !ok {
			return nil
		}
		return m.service.Initialize(ctx, evt.LeadID, evt.Stage, true)
	}))

	bus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.LeadStageChanged)
		if !ok {
			return nil
		}
		// A stage change starts the new stage's sequence from scratch; any
		// pause from the previous stage does not carry over.
		return m.service.Initialize(ctx, evt.LeadID, evt.NewStage, true)
	}))

	bus.Subscribe(events.LeadArchived{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.LeadArchived)
		if !ok {
			return nil
		}
		return m.service.Deactivate(ctx, evt.LeadID, DeactivateReasonArchived)
	}))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
