package webhook

import (
	"context"
	"fmt"
	"time"

	"crm_portal_backend/internal/events"
	leadsdomain "crm_portal_backend/internal/leads/domain"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const opIngest = "webhook.service.ingest"

// Pause reasons recorded by ingestion. Bounces carry the provider's reason
// for the paper trail.
const (
	pauseReasonBouncedPrefix = "Email bounced"
	pauseReasonComplained    = "Lead marked email as spam"
)

// kindPolicy decides what an event kind does to the lead. Only a click is
// confirmed engagement that counts as contact; opens are logged but too
// noisy to reset aging on. Bounces and complaints stop the drip; transient
// failures are recorded and nothing more.
type kindPolicy struct {
	activityTitle string
	contactMade   bool
	// pause derives the pause reason from the event; nil means the
	// automation keeps running.
	pause func(data EventData) string
}

var kindPolicies = map[EventKind]kindPolicy{
	KindOpened:  {activityTitle: "Email opened"},
	KindClicked: {activityTitle: "Email link clicked", contactMade: true},
	KindBounced: {activityTitle: "Email bounced", pause: func(data EventData) string {
		if data.Reason == "" {
			return pauseReasonBouncedPrefix
		}
		return pauseReasonBouncedPrefix + ": " + data.Reason
	}},
	KindComplained: {activityTitle: "Spam complaint received", pause: func(EventData) string {
		return pauseReasonComplained
	}},
	KindFailed: {activityTitle: "Email delivery failed"},
}

// LeadSource resolves inbound addresses to leads and records engagement.
// Satisfied by *leadsrepo.Repository.
type LeadSource interface {
	GetActiveByEmail(ctx context.Context, email string) (leadsrepo.Lead, error)
	AddActivity(ctx context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error)
}

// AutomationControl reads a lead's drip state and pauses it on negative
// engagement. Satisfied by *automation.Service.
type AutomationControl interface {
	IsActive(ctx context.Context, leadID uuid.UUID) (bool, error)
	Pause(ctx context.Context, leadID uuid.UUID, reason string) error
}

// Service applies inbound provider events to leads.
type Service struct {
	leads  LeadSource
	autos  AutomationControl
	dedupe Deduper
	bus    events.Bus
	log    *logger.Logger

	now func() time.Time
}

// NewService creates the webhook ingestion service.
func NewService(leads LeadSource, autos AutomationControl, dedupe Deduper, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		leads:  leads,
		autos:  autos,
		dedupe: dedupe,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Ingest processes one provider event. The call is designed to be retried by
// the provider: duplicates and untracked addresses return success so retries
// stop, and every mutation it triggers is idempotent.
func (s *Service) Ingest(ctx context.Context, req EventRequest) (IngestResponse, error) {
	kind, err := ParseEventKind(req.Type)
	if err != nil {
		return IngestResponse{}, apperr.Wrap(apperr.KindValidation, "unsupported event kind", err).WithOp(opIngest)
	}

	eventTime := req.Data.CreatedAt
	if eventTime.IsZero() {
		eventTime = s.now()
	}

	seen, err := s.dedupe.Seen(ctx, req.DedupeID(kind))
	if err != nil {
		// Dedupe is an optimization; the guarded writes below are already
		// replay-safe, so process the event rather than fail it.
		s.log.Warn("webhook dedupe check failed, processing anyway", "error", err)
	} else if seen {
		return IngestResponse{Status: StatusDuplicate}, nil
	}

	lead, err := s.leads.GetActiveByEmail(ctx, req.Data.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return IngestResponse{Status: StatusUntracked}, nil
	}
	if err != nil {
		return IngestResponse{}, err
	}

	// Events only matter for leads with a running drip sequence. A paused,
	// completed, or absent automation makes the event a no-op: nothing is
	// logged and a click must not reset the lead's aging.
	active, err := s.autos.IsActive(ctx, lead.ID)
	if err != nil {
		return IngestResponse{}, err
	}
	if !active {
		return IngestResponse{Status: StatusInactive}, nil
	}

	policy := kindPolicies[kind]

	description := fmt.Sprintf("provider event %q for %s", kind, req.Data.Email)
	if req.Data.Reason != "" {
		description += ": " + req.Data.Reason
	}

	if _, err := s.leads.AddActivity(ctx, leadsrepo.AddActivityParams{
		LeadID:      lead.ID,
		Type:        leadsdomain.ActivityTypeEngagement,
		Title:       policy.activityTitle,
		Description: leadsrepo.TruncateDescription(description, leadsrepo.ActivityDescriptionMaxLen),
		ContactMade: policy.contactMade,
		Automated:   true,
		OccurredAt:  eventTime,
		CreatedBy:   leadsdomain.ActorWebhookIngest,
		Metadata: map[string]any{
			"eventKind": string(kind),
			"messageId": req.Data.MessageID,
			"url":       req.Data.URL,
		},
	}); err != nil {
		return IngestResponse{}, err
	}

	if policy.pause != nil {
		if err := s.autos.Pause(ctx, lead.ID, policy.pause(req.Data)); err != nil {
			// The automation was active a moment ago; a concurrent pause is
			// fine, anything else is worth a provider retry.
			if !apperr.Is(err, apperr.KindNotFound) {
				return IngestResponse{}, err
			}
		}
	}

	s.bus.Publish(ctx, events.EngagementReceived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		EventKind: string(kind),
		Email:     req.Data.Email,
		EventTime: eventTime,
	})

	return IngestResponse{Status: StatusProcessed}, nil
}
