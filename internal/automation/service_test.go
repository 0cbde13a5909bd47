package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_portal_backend/internal/automation/domain"
	"crm_portal_backend/internal/events"
	leadsdomain "crm_portal_backend/internal/leads/domain"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type stubStore struct {
	due []DueLead

	record    Record
	recordErr error

	initialized  []uuid.UUID
	pauseReasons map[uuid.UUID]string
	resumed      []uuid.UUID
	completed    []uuid.UUID
	replied      []uuid.UUID
	deactivated  map[uuid.UUID]string
	sentStages   []int

	markSentResult bool
}

func newStubStore(due ...DueLead) *stubStore {
	return &stubStore{
		due:            due,
		pauseReasons:   make(map[uuid.UUID]string),
		deactivated:    make(map[uuid.UUID]string),
		markSentResult: true,
	}
}

func (s *stubStore) Initialize(_ context.Context, leadID uuid.UUID, _ bool) error {
	s.initialized = append(s.initialized, leadID)
	return nil
}

func (s *stubStore) GetByLeadID(context.Context, uuid.UUID) (Record, error) {
	return s.record, s.recordErr
}

func (s *stubStore) Pause(_ context.Context, leadID uuid.UUID, reason string, _ time.Time) error {
	s.pauseReasons[leadID] = reason
	return nil
}

func (s *stubStore) Resume(_ context.Context, leadID uuid.UUID) error {
	s.resumed = append(s.resumed, leadID)
	return nil
}

func (s *stubStore) MarkStageSent(_ context.Context, _ uuid.UUID, fromStage int, _ time.Time) (bool, error) {
	s.sentStages = append(s.sentStages, fromStage)
	return s.markSentResult, nil
}

func (s *stubStore) Complete(_ context.Context, leadID uuid.UUID, _ time.Time) error {
	s.completed = append(s.completed, leadID)
	return nil
}

func (s *stubStore) SetLeadReplied(_ context.Context, leadID uuid.UUID) error {
	s.replied = append(s.replied, leadID)
	return nil
}

func (s *stubStore) Deactivate(_ context.Context, leadID uuid.UUID, reason string, _ time.Time) error {
	s.deactivated[leadID] = reason
	return nil
}

func (s *stubStore) ListDue(context.Context, int) ([]DueLead, error) {
	return s.due, nil
}

type stubLeads struct {
	lead       leadsrepo.Lead
	getErr     error
	activities []leadsrepo.AddActivityParams
}

func (s *stubLeads) GetByID(context.Context, uuid.UUID) (leadsrepo.Lead, error) {
	return s.lead, s.getErr
}

func (s *stubLeads) AddActivity(_ context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error) {
	s.activities = append(s.activities, p)
	return leadsrepo.Activity{}, nil
}

type stubMailer struct {
	sent []string
	err  error
}

func (s *stubMailer) SendDripEmail(_ context.Context, toEmail, _, _, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, toEmail)
	return nil
}

type stubConfig struct{ batch int }

func (c stubConfig) GetAutomationBatchSize() int { return c.batch }

type captureBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *captureBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.EventName())
	}
	return names
}

func newTestService(store *stubStore, leads *stubLeads, mailer *stubMailer, bus events.Bus) *Service {
	svc := NewService(store, leads, mailer, DefaultSequences(), bus, stubConfig{batch: 50}, logger.New("test"))
	return svc
}

func dueAt(stage int, seededAt time.Time, lastSentAt *time.Time) DueLead {
	return DueLead{
		LeadID:     uuid.New(),
		Email:      "lead@example.com",
		Name:       "Test Lead",
		Stage:      leadsdomain.StageLead,
		State:      domain.Active(stage),
		SeededAt:   seededAt,
		LastSentAt: lastSentAt,
	}
}

func TestInitializeDeactivatesTerminalStage(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &stubLeads{}, &stubMailer{}, &captureBus{})
	leadID := uuid.New()

	if err := svc.Initialize(context.Background(), leadID, leadsdomain.StageWon, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.initialized) != 0 {
		t.Fatal("terminal stage must not seed an automation")
	}
	if _, ok := store.deactivated[leadID]; !ok {
		t.Fatal("expected deactivation for terminal stage")
	}
}

func TestAdvanceSendsDueStepAndRecordsActivity(t *testing.T) {
	now := time.Now()
	store := newStubStore(dueAt(0, now.Add(-time.Hour), nil))
	leads := &stubLeads{}
	mailer := &stubMailer{}
	svc := newTestService(store, leads, mailer, &captureBus{})

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Sent != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "lead@example.com" {
		t.Fatalf("unexpected sends: %v", mailer.sent)
	}
	if len(store.sentStages) != 1 || store.sentStages[0] != 0 {
		t.Fatalf("expected cursor advance from stage 0, got %v", store.sentStages)
	}
	if len(leads.activities) != 1 {
		t.Fatalf("expected one activity, got %d", len(leads.activities))
	}
	activity := leads.activities[0]
	if activity.Type != leadsdomain.ActivityTypeEmail || !activity.Automated || activity.ContactMade {
		t.Fatalf("unexpected activity: %+v", activity)
	}
	if activity.CreatedBy != leadsdomain.ActorAutomationEngine {
		t.Fatalf("unexpected activity author: %q", activity.CreatedBy)
	}
}

func TestAdvanceRespectsStepDelay(t *testing.T) {
	now := time.Now()
	lastSent := now.Add(-24 * time.Hour)
	// Step 1 of the Lead sequence requires three days since the last send.
	store := newStubStore(dueAt(1, now.Add(-10*24*time.Hour), &lastSent))
	mailer := &stubMailer{}
	svc := newTestService(store, &stubLeads{}, mailer, &captureBus{})

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 1 || summary.Sent != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no email should be sent before the delay elapses")
	}
}

func TestAdvanceSendFailureLeavesCursor(t *testing.T) {
	now := time.Now()
	store := newStubStore(dueAt(0, now.Add(-time.Hour), nil))
	mailer := &stubMailer{err: errors.New("smtp unavailable")}
	bus := &captureBus{}
	svc := newTestService(store, &stubLeads{}, mailer, bus)

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(store.sentStages) != 0 {
		t.Fatal("cursor must not move on a failed send")
	}

	var sawFailure bool
	for _, name := range bus.names() {
		if name == (events.AutomationSendFailed{}).EventName() {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Fatal("expected AutomationSendFailed event")
	}
}

func TestAdvanceCompletesAfterFinalStep(t *testing.T) {
	now := time.Now()
	lastSent := now.Add(-30 * 24 * time.Hour)
	// Step 3 is the last step of the Lead sequence.
	due := dueAt(3, now.Add(-60*24*time.Hour), &lastSent)
	store := newStubStore(due)
	svc := newTestService(store, &stubLeads{}, &stubMailer{}, &captureBus{})

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(store.completed) != 1 || store.completed[0] != due.LeadID {
		t.Fatalf("expected completion for %s, got %v", due.LeadID, store.completed)
	}
}

func TestAdvanceCompletesOverrunCursorWithoutSending(t *testing.T) {
	now := time.Now()
	due := dueAt(9, now.Add(-time.Hour), nil)
	store := newStubStore(due)
	mailer := &stubMailer{}
	svc := newTestService(store, &stubLeads{}, mailer, &captureBus{})

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Completed != 1 || len(mailer.sent) != 0 {
		t.Fatalf("expected silent completion, summary %+v sends %v", summary, mailer.sent)
	}
}

func TestAdvanceSkipsNonAdvanceableState(t *testing.T) {
	now := time.Now()
	due := dueAt(0, now.Add(-time.Hour), nil)
	paused, err := domain.Paused(0, "Lead replied", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	due.State = paused

	store := newStubStore(due)
	mailer := &stubMailer{}
	svc := newTestService(store, &stubLeads{}, mailer, &captureBus{})

	summary, err := svc.AdvanceAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 1 || len(mailer.sent) != 0 {
		t.Fatalf("paused automation must never send, summary %+v", summary)
	}
}

func TestMarkRepliedPausesWithCanonicalReason(t *testing.T) {
	store := newStubStore()
	bus := &captureBus{}
	svc := newTestService(store, &stubLeads{}, &stubMailer{}, bus)
	leadID := uuid.New()

	if err := svc.MarkReplied(context.Background(), leadID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.replied) != 1 {
		t.Fatal("expected reply flag to be set")
	}
	if got := store.pauseReasons[leadID]; got != PauseReasonReplied {
		t.Fatalf("pause reason = %q, want %q", got, PauseReasonReplied)
	}
}

func TestIsActiveReflectsAutomationState(t *testing.T) {
	pausedAt := time.Now()
	paused, err := domain.Paused(1, "Email bounced", pausedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name      string
		record    Record
		recordErr error
		want      bool
	}{
		{name: "active", record: Record{State: domain.Active(0)}, want: true},
		{name: "paused", record: Record{State: paused}},
		{name: "completed", record: Record{State: domain.Completed(3, pausedAt)}},
		{name: "absent", recordErr: apperr.NotFound("automation not found")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			store.record = tc.record
			store.recordErr = tc.recordErr
			svc := newTestService(store, &stubLeads{}, &stubMailer{}, &captureBus{})

			active, err := svc.IsActive(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if active != tc.want {
				t.Fatalf("IsActive = %v, want %v", active, tc.want)
			}
		})
	}
}

func TestPauseRequiresReason(t *testing.T) {
	svc := newTestService(newStubStore(), &stubLeads{}, &stubMailer{}, &captureBus{})

	err := svc.Pause(context.Background(), uuid.New(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResumeRejectsArchivedAndTerminalLeads(t *testing.T) {
	store := newStubStore()
	leads := &stubLeads{lead: leadsrepo.Lead{IsArchived: true, Stage: leadsdomain.StageLead}}
	svc := newTestService(store, leads, &stubMailer{}, &captureBus{})

	if err := svc.Resume(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for archived lead, got %v", err)
	}

	leads.lead = leadsrepo.Lead{Stage: leadsdomain.StageWon}
	if err := svc.Resume(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for terminal stage, got %v", err)
	}
	if len(store.resumed) != 0 {
		t.Fatal("resume must not reach the store for rejected leads")
	}

	leads.lead = leadsrepo.Lead{Stage: leadsdomain.StageQualified}
	if err := svc.Resume(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.resumed) != 1 {
		t.Fatal("expected resume to reach the store")
	}
}
