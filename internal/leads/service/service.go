// Package service implements lead management operations: creation, pipeline
// stage changes, tracked-field updates with audit history, archiving, and the
// manual aging-alert exemption.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crm_portal_backend/internal/events"
	"crm_portal_backend/internal/leads/domain"
	"crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/internal/leads/transport"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence surface the management service depends on.
// Satisfied by *repository.Repository.
type Store interface {
	Create(ctx context.Context, p repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) (string, error)
	UpdateField(ctx context.Context, id uuid.UUID, field string, value any) (string, error)
	SetAgingPaused(ctx context.Context, id uuid.UUID, paused bool) error
	Archive(ctx context.Context, id uuid.UUID, archivedBy string) error
	AddActivity(ctx context.Context, p repository.AddActivityParams) (repository.Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]repository.Activity, error)
	AppendVersionHistory(ctx context.Context, entries []repository.AppendVersionHistoryParams) error
	ListVersionHistory(ctx context.Context, leadID uuid.UUID) ([]repository.VersionEntry, error)
}

// Service implements lead management.
type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

// New creates the lead management service.
func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Create inserts a new lead and publishes LeadCreated so the automation
// module seeds the companion drip record in lockstep.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	stage := req.Stage
	if stage == "" {
		stage = domain.StageLead
	}
	if !domain.IsKnownStage(stage) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown pipeline stage %q", stage))
	}
	if !domain.IsKnownBudget(req.Budget) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown budget tier %q", req.Budget))
	}

	normalizedPhone, ok := phone.Normalize(req.Phone)
	if req.Phone != "" && !ok {
		s.log.Warn("lead phone could not be normalized", "phone", req.Phone)
	}

	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        normalizedPhone,
		Stage:        stage,
		Source:       req.Source,
		ProjectTypes: req.ProjectTypes,
		Value:        req.Value,
		Budget:       req.Budget,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Stage:     lead.Stage,
		Email:     lead.Email,
		Source:    lead.Source,
	})

	return toLeadResponse(lead), nil
}

// Get returns a lead by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// ChangeStage moves a lead to a different pipeline stage, records the change
// in the version history, and publishes LeadStageChanged so the automation
// module re-seeds the drip sequence.
func (s *Service) ChangeStage(ctx context.Context, id uuid.UUID, req transport.ChangeStageRequest, changedBy string) (transport.LeadResponse, error) {
	if !domain.IsKnownStage(req.Stage) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown pipeline stage %q", req.Stage))
	}

	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if lead.IsArchived {
		return transport.LeadResponse{}, apperr.Validation("cannot change stage of an archived lead")
	}
	if lead.Stage == req.Stage {
		return toLeadResponse(lead), nil
	}

	previous, err := s.store.UpdateStage(ctx, id, req.Stage)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if err := s.store.AppendVersionHistory(ctx, []repository.AppendVersionHistoryParams{{
		LeadID:    id,
		Field:     "stage",
		OldValue:  previous,
		NewValue:  req.Stage,
		ChangedBy: changedBy,
		Comment:   req.Comment,
	}}); err != nil {
		// The stage change itself succeeded; a missing audit row is logged,
		// not surfaced, so the operator action is not reported as failed.
		s.log.Error("failed to append stage version history", "error", err, "leadId", id)
	}

	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        id,
		PreviousStage: previous,
		NewStage:      req.Stage,
		ChangedBy:     changedBy,
	})

	lead.Stage = req.Stage
	return toLeadResponse(lead), nil
}

// Update applies a partial update to tracked fields, writing one version
// history entry per changed field.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest, changedBy string) error {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lead.IsArchived {
		return apperr.Validation("cannot update an archived lead")
	}

	type fieldChange struct {
		field string
		value any
		text  string
	}

	var changes []fieldChange
	if req.Name != nil && *req.Name != lead.Name {
		changes = append(changes, fieldChange{"name", *req.Name, *req.Name})
	}
	if req.Phone != nil {
		normalized, _ := phone.Normalize(*req.Phone)
		if normalized != lead.Phone {
			changes = append(changes, fieldChange{"phone", normalized, normalized})
		}
	}
	if req.Source != nil && *req.Source != lead.Source {
		changes = append(changes, fieldChange{"source", *req.Source, *req.Source})
	}
	if req.Value != nil && *req.Value != lead.Value {
		changes = append(changes, fieldChange{"value", *req.Value, strconv.FormatFloat(*req.Value, 'f', -1, 64)})
	}
	if req.Budget != nil && *req.Budget != lead.Budget {
		if !domain.IsKnownBudget(*req.Budget) {
			return apperr.Validation(fmt.Sprintf("unknown budget tier %q", *req.Budget))
		}
		changes = append(changes, fieldChange{"budget", *req.Budget, *req.Budget})
	}

	if len(changes) == 0 {
		return nil
	}

	entries := make([]repository.AppendVersionHistoryParams, 0, len(changes))
	for _, change := range changes {
		previous, err := s.store.UpdateField(ctx, id, change.field, change.value)
		if err != nil {
			return err
		}
		entries = append(entries, repository.AppendVersionHistoryParams{
			LeadID:    id,
			Field:     change.field,
			OldValue:  previous,
			NewValue:  change.text,
			ChangedBy: changedBy,
			Comment:   req.Comment,
		})
	}

	return s.store.AppendVersionHistory(ctx, entries)
}

// Archive soft-deletes a lead and publishes LeadArchived so the automation
// module deactivates its drip sequence. History is retained.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, archivedBy string) error {
	if err := s.store.Archive(ctx, id, archivedBy); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.LeadArchived{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     id,
		ArchivedBy: archivedBy,
	})
	return nil
}

// PauseAging exempts a lead from aging alerts until resumed.
func (s *Service) PauseAging(ctx context.Context, id uuid.UUID) error {
	return s.store.SetAgingPaused(ctx, id, true)
}

// ResumeAging re-enables aging alerts for a lead.
func (s *Service) ResumeAging(ctx context.Context, id uuid.UUID) error {
	return s.store.SetAgingPaused(ctx, id, false)
}

// AddActivity appends an operator-authored activity entry.
func (s *Service) AddActivity(ctx context.Context, id uuid.UUID, req transport.AddActivityRequest, createdBy string) (transport.ActivityResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	if lead.IsArchived {
		return transport.ActivityResponse{}, apperr.Validation("cannot add activity to an archived lead")
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	activity, err := s.store.AddActivity(ctx, repository.AddActivityParams{
		LeadID:      id,
		Type:        req.Type,
		Title:       req.Title,
		Description: repository.TruncateDescription(req.Description, repository.ActivityDescriptionMaxLen),
		Status:      req.Status,
		ContactMade: req.ContactMade,
		DueDate:     req.DueDate,
		OccurredAt:  occurredAt,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	return toActivityResponse(activity), nil
}

// ListActivities returns a lead's activity log.
func (s *Service) ListActivities(ctx context.Context, id uuid.UUID) ([]transport.ActivityResponse, error) {
	activities, err := s.store.ListActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ActivityResponse, len(activities))
	for i, a := range activities {
		out[i] = toActivityResponse(a)
	}
	return out, nil
}

// ListVersionHistory returns a lead's audit trail.
func (s *Service) ListVersionHistory(ctx context.Context, id uuid.UUID) ([]transport.VersionEntryResponse, error) {
	entries, err := s.store.ListVersionHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]transport.VersionEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = transport.VersionEntryResponse{
			Field:     e.Field,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			ChangedBy: e.ChangedBy,
			Comment:   e.Comment,
			Timestamp: e.CreatedAt,
		}
	}
	return out, nil
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		Name:            lead.Name,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Stage:           lead.Stage,
		Source:          lead.Source,
		ProjectTypes:    lead.ProjectTypes,
		Value:           lead.Value,
		Budget:          lead.Budget,
		CreatedAt:       lead.CreatedAt,
		LastContactDate: lead.LastContactDate,
		AgingDays:       lead.AgingDays,
		AgingPaused:     lead.AgingPaused,
		IsArchived:      lead.IsArchived,
	}
}

func toActivityResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:          a.ID,
		Type:        a.Type,
		Title:       a.Title,
		Description: a.Description,
		Status:      a.Status,
		ContactMade: a.ContactMade,
		Automated:   a.Automated,
		DueDate:     a.DueDate,
		OccurredAt:  a.OccurredAt,
		CreatedBy:   a.CreatedBy,
		Metadata:    a.Metadata,
	}
}
