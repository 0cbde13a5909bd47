package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm_portal_backend/internal/aging"
	"crm_portal_backend/internal/email"
	"crm_portal_backend/internal/events"
	"crm_portal_backend/internal/leads/domain"
	"crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/internal/notification/inapp"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type stubMailer struct {
	sent    []string
	failFor map[string]error
}

func (s *stubMailer) SendAgingDigestEmail(_ context.Context, toEmail, _ string, _ email.AgingDigest) error {
	if err := s.failFor[toEmail]; err != nil {
		return err
	}
	s.sent = append(s.sent, toEmail)
	return nil
}

type stubAdmins struct {
	admins []Admin
	err    error
}

func (s stubAdmins) ListRecipients(context.Context) ([]Admin, error) { return s.admins, s.err }

type stubNotifier struct {
	params []inapp.SendParams
	err    error
}

func (s *stubNotifier) Send(_ context.Context, p inapp.SendParams) error {
	if s.err != nil {
		return s.err
	}
	s.params = append(s.params, p)
	return nil
}

func (s *stubNotifier) Broadcast(ctx context.Context, adminIDs []uuid.UUID, p inapp.SendParams) {
	for _, adminID := range adminIDs {
		p.AdminID = adminID
		_ = s.Send(ctx, p)
	}
}

type stubSweeper struct {
	result aging.SweepResult
	err    error
}

func (s stubSweeper) Sweep(context.Context) (aging.SweepResult, error) { return s.result, s.err }

type stubDispatchConfig struct{}

func (stubDispatchConfig) GetAlertSendInterval() time.Duration { return time.Millisecond }
func (stubDispatchConfig) GetAppBaseURL() string               { return "https://crm.example.com" }

func admin(email string) Admin {
	return Admin{ID: uuid.New(), Email: email, Name: "Admin"}
}

func staleLead(name, stage string, days int) repository.Lead {
	return repository.Lead{ID: uuid.New(), Name: name, Email: name + "@example.com", Stage: stage, AgingDays: days}
}

func TestDispatchEmptyAlertSetIsNoOp(t *testing.T) {
	mailer := &stubMailer{}
	admins := stubAdmins{admins: []Admin{admin("a@example.com")}}
	svc := NewService(admins, mailer, &stubNotifier{}, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	summary, err := svc.Dispatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.AlertingLeads != 0 || summary.SuccessfulSends != 0 || len(mailer.sent) != 0 {
		t.Fatalf("empty set must send nothing: %+v", summary)
	}
}

func TestDispatchFansOutAndIsolatesFailures(t *testing.T) {
	mailer := &stubMailer{failFor: map[string]error{
		"b@example.com": errors.New("smtp rejected"),
	}}
	admins := stubAdmins{admins: []Admin{
		admin("a@example.com"), admin("b@example.com"), admin("c@example.com"),
	}}
	notifier := &stubNotifier{}
	svc := NewService(admins, mailer, notifier, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	leads := []repository.Lead{staleLead("alpha", domain.StageLead, 5)}
	summary, err := svc.Dispatch(context.Background(), leads)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalAdmins != 3 || summary.SuccessfulSends != 2 || summary.FailedSends != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	// Only successful email sends get the in-app copy.
	if len(notifier.params) != 2 {
		t.Fatalf("expected 2 in-app notifications, got %d", len(notifier.params))
	}
	if notifier.params[0].Type != inapp.TypeAgingAlert {
		t.Fatalf("unexpected notification type %q", notifier.params[0].Type)
	}
}

func TestDispatchWithoutRecipientsWarnsAndReturns(t *testing.T) {
	mailer := &stubMailer{}
	svc := NewService(stubAdmins{}, mailer, &stubNotifier{}, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	summary, err := svc.Dispatch(context.Background(), []repository.Lead{staleLead("alpha", domain.StageLead, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.AlertingLeads != 1 || summary.TotalAdmins != 0 || len(mailer.sent) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestDispatchNotificationFailureIsBestEffort(t *testing.T) {
	mailer := &stubMailer{}
	admins := stubAdmins{admins: []Admin{admin("a@example.com")}}
	notifier := &stubNotifier{err: errors.New("insert failed")}
	svc := NewService(admins, mailer, notifier, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	summary, err := svc.Dispatch(context.Background(), []repository.Lead{staleLead("alpha", domain.StageLead, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SuccessfulSends != 1 {
		t.Fatalf("email send must still count: %+v", summary)
	}
}

func TestSweepAndDispatchPropagatesSweepFailure(t *testing.T) {
	svc := NewService(stubAdmins{}, &stubMailer{}, &stubNotifier{}, stubSweeper{err: errors.New("db down")}, stubDispatchConfig{}, logger.New("test"))
	if _, err := svc.SweepAndDispatch(context.Background()); err == nil {
		t.Fatal("expected sweep failure to propagate")
	}
}

func TestNotifyAutomationPausedBroadcastsToAdmins(t *testing.T) {
	admins := stubAdmins{admins: []Admin{admin("a@example.com"), admin("b@example.com")}}
	notifier := &stubNotifier{}
	svc := NewService(admins, &stubMailer{}, notifier, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	leadID := uuid.New()
	err := svc.NotifyAutomationPaused(context.Background(), events.AutomationPaused{
		LeadID: leadID,
		Reason: "Email bounced: mailbox full",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.params) != 2 {
		t.Fatalf("expected one notification per admin, got %d", len(notifier.params))
	}
	for _, p := range notifier.params {
		if p.Type != inapp.TypePaused {
			t.Fatalf("type = %q, want %q", p.Type, inapp.TypePaused)
		}
		if p.RelatedLeadID == nil || *p.RelatedLeadID != leadID {
			t.Fatal("notification must reference the paused lead")
		}
	}
}

func TestNotifySendFailureBroadcastsHighPriority(t *testing.T) {
	admins := stubAdmins{admins: []Admin{admin("a@example.com")}}
	notifier := &stubNotifier{}
	svc := NewService(admins, &stubMailer{}, notifier, stubSweeper{}, stubDispatchConfig{}, logger.New("test"))

	err := svc.NotifySendFailure(context.Background(), events.AutomationSendFailed{
		LeadID:    uuid.New(),
		LeadEmail: "lead@example.com",
		StageName: "Introduction",
		Reason:    "smtp down",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.params) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.params))
	}
	if notifier.params[0].Priority != inapp.PriorityHigh {
		t.Fatalf("priority = %q, want high", notifier.params[0].Priority)
	}
	if notifier.params[0].Type != inapp.TypeSendFailed {
		t.Fatalf("type = %q, want %q", notifier.params[0].Type, inapp.TypeSendFailed)
	}
}
