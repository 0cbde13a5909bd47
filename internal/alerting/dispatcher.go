package alerting

import (
	"context"
	"strconv"
	"time"

	"crm_portal_backend/internal/aging"
	"crm_portal_backend/internal/email"
	"crm_portal_backend/internal/events"
	"crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/internal/notification/inapp"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// digestSendTimeout bounds one admin's digest delivery.
const digestSendTimeout = 30 * time.Second

// Mailer delivers digest emails. Satisfied by email.Sender implementations.
type Mailer interface {
	SendAgingDigestEmail(ctx context.Context, toEmail, adminName string, digest email.AgingDigest) error
}

// AdminSource lists alert recipients. Satisfied by *AdminRepository.
type AdminSource interface {
	ListRecipients(ctx context.Context) ([]Admin, error)
}

// Notifier writes in-app notifications. Satisfied by *inapp.Service.
type Notifier interface {
	Send(ctx context.Context, p inapp.SendParams) error
	Broadcast(ctx context.Context, adminIDs []uuid.UUID, p inapp.SendParams)
}

// Sweeper runs the aging sweep. Satisfied by *aging.Service.
type Sweeper interface {
	Sweep(ctx context.Context) (aging.SweepResult, error)
}

// Config provides dispatch tuning.
type Config interface {
	GetAlertSendInterval() time.Duration
	GetAppBaseURL() string
}

// Summary reports one alert dispatch.
type Summary struct {
	AlertingLeads   int
	TotalAdmins     int
	SuccessfulSends int
	FailedSends     int
}

// Service fans the alerting set out to every admin.
type Service struct {
	admins  AdminSource
	mailer  Mailer
	notify  Notifier
	sweeper Sweeper
	cfg     Config
	log     *logger.Logger
}

// NewService creates the alerting dispatcher.
func NewService(admins AdminSource, mailer Mailer, notify Notifier, sweeper Sweeper, cfg Config, log *logger.Logger) *Service {
	return &Service{
		admins:  admins,
		mailer:  mailer,
		notify:  notify,
		sweeper: sweeper,
		cfg:     cfg,
		log:     log,
	}
}

// SweepAndDispatch runs a full aging pass and alerts on the result. This is
// the scheduler entry point and also backs the on-demand endpoint.
func (s *Service) SweepAndDispatch(ctx context.Context) (Summary, error) {
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return Summary{}, err
	}
	return s.Dispatch(ctx, result.Alerting)
}

// Dispatch sends one digest email and one in-app notification per admin.
// Sends are paced so a burst of admins does not trip the SMTP provider, and
// one admin's failure never blocks the rest.
func (s *Service) Dispatch(ctx context.Context, leads []repository.Lead) (Summary, error) {
	summary := Summary{AlertingLeads: len(leads)}
	if len(leads) == 0 {
		return summary, nil
	}

	admins, err := s.admins.ListRecipients(ctx)
	if err != nil {
		return summary, err
	}
	summary.TotalAdmins = len(admins)
	if len(admins) == 0 {
		s.log.Warn("aging alert dispatch skipped, no recipients configured", "alertingLeads", len(leads))
		return summary, nil
	}

	digest := BuildDigest(leads, s.cfg.GetAppBaseURL())

	interval := s.cfg.GetAlertSendInterval()
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for _, admin := range admins {
		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		sendCtx, cancel := context.WithTimeout(ctx, digestSendTimeout)
		err := s.mailer.SendAgingDigestEmail(sendCtx, admin.Email, admin.Name, digest)
		cancel()
		if err != nil {
			summary.FailedSends++
			s.log.Error("aging digest send failed", "error", err, "adminId", admin.ID)
			continue
		}
		summary.SuccessfulSends++

		if err := s.notify.Send(ctx, inapp.SendParams{
			AdminID:  admin.ID,
			Type:     inapp.TypeAgingAlert,
			Title:    "Leads need attention",
			Message:  digestMessage(len(leads)),
			Priority: inapp.PriorityNormal,
		}); err != nil {
			// The email is the alert of record; the in-app copy is best effort.
			s.log.Error("aging alert notification failed", "error", err, "adminId", admin.ID)
		}
	}

	s.log.Info("aging alert dispatch complete",
		"alertingLeads", summary.AlertingLeads,
		"admins", summary.TotalAdmins,
		"sent", summary.SuccessfulSends,
		"failed", summary.FailedSends,
	)
	return summary, nil
}

// NotifySendFailure fans a drip delivery failure out to every recipient as a
// high-priority in-app notification.
func (s *Service) NotifySendFailure(ctx context.Context, evt events.AutomationSendFailed) error {
	adminIDs, err := s.recipientIDs(ctx)
	if err != nil {
		return err
	}
	leadID := evt.LeadID
	s.notify.Broadcast(ctx, adminIDs, inapp.SendParams{
		Type:          inapp.TypeSendFailed,
		Title:         "Drip email failed",
		Message:       "Sending \"" + evt.StageName + "\" to " + evt.LeadEmail + " failed: " + evt.Reason,
		RelatedLeadID: &leadID,
		Priority:      inapp.PriorityHigh,
	})
	return nil
}

// NotifyAutomationPaused records an in-app note when a drip sequence stops,
// so admins learn why a lead went quiet without digging through activity logs.
func (s *Service) NotifyAutomationPaused(ctx context.Context, evt events.AutomationPaused) error {
	adminIDs, err := s.recipientIDs(ctx)
	if err != nil {
		return err
	}
	leadID := evt.LeadID
	s.notify.Broadcast(ctx, adminIDs, inapp.SendParams{
		Type:          inapp.TypePaused,
		Title:         "Drip automation paused",
		Message:       "Automation paused: " + evt.Reason,
		RelatedLeadID: &leadID,
		Priority:      inapp.PriorityNormal,
	})
	return nil
}

func (s *Service) recipientIDs(ctx context.Context) ([]uuid.UUID, error) {
	admins, err := s.admins.ListRecipients(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.ID)
	}
	return ids, nil
}

func digestMessage(count int) string {
	if count == 1 {
		return "1 lead has gone quiet and needs a follow-up."
	}
	return strconv.Itoa(count) + " leads have gone quiet and need a follow-up."
}
