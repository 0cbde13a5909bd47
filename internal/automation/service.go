// Package automation runs the drip email engine: each active lead carries a
// per-stage email sequence that advances on a schedule and pauses on
// engagement or operator action.
package automation

import (
	"context"
	"time"

	"crm_portal_backend/internal/automation/domain"
	"crm_portal_backend/internal/events"
	leadsdomain "crm_portal_backend/internal/leads/domain"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Canonical pause and deactivation reasons for transitions this package
// initiates. Webhook ingestion supplies its own reasons per event kind.
const (
	PauseReasonReplied       = "Lead replied"
	DeactivateReasonArchived = "lead archived"
)

// sendTimeout bounds a single drip delivery so one slow SMTP conversation
// cannot stall the whole advance batch.
const sendTimeout = 30 * time.Second

const opService = "automation.service"

// Store is the persistence surface of the automation engine.
// Satisfied by *Repository.
type Store interface {
	Initialize(ctx context.Context, leadID uuid.UUID, clearReplied bool) error
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (Record, error)
	Pause(ctx context.Context, leadID uuid.UUID, reason string, at time.Time) error
	Resume(ctx context.Context, leadID uuid.UUID) error
	MarkStageSent(ctx context.Context, leadID uuid.UUID, fromStage int, sentAt time.Time) (bool, error)
	Complete(ctx context.Context, leadID uuid.UUID, at time.Time) error
	SetLeadReplied(ctx context.Context, leadID uuid.UUID) error
	Deactivate(ctx context.Context, leadID uuid.UUID, reason string, at time.Time) error
	ListDue(ctx context.Context, limit int) ([]DueLead, error)
}

// LeadSource exposes the lead reads and activity writes the engine needs.
// Satisfied by *leadsrepo.Repository.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	AddActivity(ctx context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error)
}

// Mailer delivers drip emails. Satisfied by email.Sender implementations.
type Mailer interface {
	SendDripEmail(ctx context.Context, toEmail, leadName, subject, templateName string) error
}

// Config provides advance tuning.
type Config interface {
	GetAutomationBatchSize() int
}

// AdvanceSummary reports one advance pass over the due set.
type AdvanceSummary struct {
	Scanned   int
	Sent      int
	Skipped   int
	Completed int
	Failed    int
}

// Service orchestrates sequence seeding, advancement, and pause transitions.
type Service struct {
	store     Store
	leads     LeadSource
	mailer    Mailer
	sequences SequenceSet
	bus       events.Bus
	cfg       Config
	log       *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates the automation service.
func NewService(store Store, leads LeadSource, mailer Mailer, sequences SequenceSet, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		leads:     leads,
		mailer:    mailer,
		sequences: sequences,
		bus:       bus,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Initialize seeds (or re-seeds) a lead's automation at step zero. Terminal
// pipeline stages get no automation; re-seeding an existing record for a
// terminal stage deactivates it instead.
func (s *Service) Initialize(ctx context.Context, leadID uuid.UUID, stage string, clearReplied bool) error {
	if leadsdomain.IsTerminalStage(stage) {
		return s.store.Deactivate(ctx, leadID, "terminal stage: "+stage, s.now())
	}
	return s.store.Initialize(ctx, leadID, clearReplied)
}

// Get returns a lead's automation record.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (Record, error) {
	return s.store.GetByLeadID(ctx, leadID)
}

// IsActive reports whether the lead's automation is running. A missing
// record counts as inactive rather than an error.
func (s *Service) IsActive(ctx context.Context, leadID uuid.UUID) (bool, error) {
	rec, err := s.store.GetByLeadID(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.State.Status == domain.StatusActive, nil
}

// Pause suspends a lead's automation. The reason is mandatory.
func (s *Service) Pause(ctx context.Context, leadID uuid.UUID, reason string) error {
	if reason == "" {
		return apperr.Wrap(apperr.KindValidation, "pause requires a reason", domain.ErrReasonRequired).WithOp(opService)
	}
	if err := s.store.Pause(ctx, leadID, reason, s.now()); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.AutomationPaused{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Reason:    reason,
	})
	return nil
}

// Resume reactivates a paused automation at its current step. Archived leads
// stay deactivated.
func (s *Service) Resume(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.IsArchived {
		return apperr.Validation("cannot resume automation for an archived lead").WithOp(opService)
	}
	if leadsdomain.IsTerminalStage(lead.Stage) {
		return apperr.Validation("cannot resume automation in a terminal stage").WithOp(opService)
	}
	return s.store.Resume(ctx, leadID)
}

// MarkReplied records an inbound reply: the reply flag is set and the
// automation pauses so the lead stops receiving drip email mid-conversation.
func (s *Service) MarkReplied(ctx context.Context, leadID uuid.UUID) error {
	if err := s.store.SetLeadReplied(ctx, leadID); err != nil {
		return err
	}
	return s.Pause(ctx, leadID, PauseReasonReplied)
}

// Deactivate permanently stops a lead's automation, recording why.
func (s *Service) Deactivate(ctx context.Context, leadID uuid.UUID, reason string) error {
	return s.store.Deactivate(ctx, leadID, reason, s.now())
}

// AdvanceAll runs one advance pass: every active automation whose next step
// delay has elapsed gets its email sent and its cursor moved. Send failures
// leave the cursor untouched so the step retries on the next pass.
func (s *Service) AdvanceAll(ctx context.Context) (AdvanceSummary, error) {
	batch := s.cfg.GetAutomationBatchSize()
	if batch < 1 {
		batch = 100
	}

	due, err := s.store.ListDue(ctx, batch)
	if err != nil {
		return AdvanceSummary{}, err
	}

	summary := AdvanceSummary{Scanned: len(due)}
	for _, candidate := range due {
		outcome, err := s.advanceOne(ctx, candidate)
		switch {
		case err != nil:
			summary.Failed++
			s.log.Error("drip advance failed", "error", err, "leadId", candidate.LeadID)
		case outcome == outcomeSent:
			summary.Sent++
		case outcome == outcomeCompleted:
			summary.Completed++
		default:
			summary.Skipped++
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.log.Info("drip advance pass complete",
		"scanned", summary.Scanned,
		"sent", summary.Sent,
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

type advanceOutcome int

const (
	outcomeSkipped advanceOutcome = iota
	outcomeSent
	outcomeCompleted
)

func (s *Service) advanceOne(ctx context.Context, due DueLead) (advanceOutcome, error) {
	if !due.State.CanAdvance() {
		return outcomeSkipped, nil
	}

	sequence := s.sequences.ForStage(due.Stage)
	if len(sequence) == 0 {
		// A stage without a sequence has nothing to send; treat as done.
		if err := s.store.Complete(ctx, due.LeadID, s.now()); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCompleted, nil
	}

	if due.State.Stage >= len(sequence) {
		if err := s.store.Complete(ctx, due.LeadID, s.now()); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCompleted, nil
	}

	step := sequence[due.State.Stage]

	// The delay is measured from the previous send, or from seeding for the
	// first step.
	reference := due.SeededAt
	if due.LastSentAt != nil {
		reference = *due.LastSentAt
	}
	now := s.now()
	if now.Before(reference.Add(step.Delay)) {
		return outcomeSkipped, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err := s.mailer.SendDripEmail(sendCtx, due.Email, due.Name, step.Subject, step.Template)
	cancel()
	if err != nil {
		s.bus.Publish(ctx, events.AutomationSendFailed{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    due.LeadID,
			LeadEmail: due.Email,
			StageName: step.Name,
			Reason:    err.Error(),
		})
		return outcomeSkipped, err
	}

	advanced, err := s.store.MarkStageSent(ctx, due.LeadID, due.State.Stage, now)
	if err != nil {
		return outcomeSkipped, err
	}
	if !advanced {
		// A concurrent pause or advance won the race; the email went out but
		// the cursor belongs to the winner.
		s.log.Warn("drip cursor moved concurrently, send not recorded as advance", "leadId", due.LeadID)
		return outcomeSkipped, nil
	}

	if _, err := s.leads.AddActivity(ctx, leadsrepo.AddActivityParams{
		LeadID:      due.LeadID,
		Type:        leadsdomain.ActivityTypeEmail,
		Title:       "Drip email sent: " + step.Name,
		ContactMade: false,
		Automated:   true,
		OccurredAt:  now,
		CreatedBy:   leadsdomain.ActorAutomationEngine,
		Metadata: map[string]any{
			"stageName": step.Name,
			"template":  step.Template,
			"stage":     due.Stage,
		},
	}); err != nil {
		// The send already happened; a missing log line must not retry it.
		s.log.Error("record drip activity failed", "error", err, "leadId", due.LeadID)
	}

	if due.State.Stage+1 >= len(sequence) {
		if err := s.store.Complete(ctx, due.LeadID, now); err != nil {
			return outcomeSent, err
		}
		return outcomeCompleted, nil
	}
	return outcomeSent, nil
}
