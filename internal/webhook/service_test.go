package webhook

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crm_portal_backend/internal/events"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type stubLeadSource struct {
	lead       leadsrepo.Lead
	getErr     error
	activities []leadsrepo.AddActivityParams
}

func (s *stubLeadSource) GetActiveByEmail(context.Context, string) (leadsrepo.Lead, error) {
	return s.lead, s.getErr
}

func (s *stubLeadSource) AddActivity(_ context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error) {
	s.activities = append(s.activities, p)
	return leadsrepo.Activity{}, nil
}

type stubAutomation struct {
	active bool
	pauses map[uuid.UUID]string
	err    error
}

func (s *stubAutomation) IsActive(context.Context, uuid.UUID) (bool, error) {
	return s.active, nil
}

func (s *stubAutomation) Pause(_ context.Context, leadID uuid.UUID, reason string) error {
	if s.err != nil {
		return s.err
	}
	if s.pauses == nil {
		s.pauses = make(map[uuid.UUID]string)
	}
	s.pauses[leadID] = reason
	return nil
}

type stubDeduper struct {
	seen bool
	err  error
}

func (s stubDeduper) Seen(context.Context, string) (bool, error) { return s.seen, s.err }

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

func newIngestService(leads *stubLeadSource, autos *stubAutomation, dedupe Deduper) *Service {
	return NewService(leads, autos, dedupe, &captureBus{}, logger.New("test"))
}

func eventFor(kind, email string) EventRequest {
	return EventRequest{
		Type: kind,
		Data: EventData{
			Email:     email,
			MessageID: "msg-123",
			CreatedAt: time.Now(),
		},
	}
}

func TestParseEventKind(t *testing.T) {
	kind, err := ParseEventKind(" Clicked ")
	if err != nil || kind != KindClicked {
		t.Fatalf("expected clicked, got %q err %v", kind, err)
	}
	if _, err := ParseEventKind("delivered"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDedupeIDIsStablePerEvent(t *testing.T) {
	req := eventFor("opened", "lead@example.com")
	if req.DedupeID(KindOpened) != req.DedupeID(KindOpened) {
		t.Fatal("dedupe ID must be deterministic")
	}
	if req.DedupeID(KindOpened) == req.DedupeID(KindClicked) {
		t.Fatal("different kinds must produce different dedupe IDs")
	}
}

func TestIngestRejectsUnknownKind(t *testing.T) {
	svc := newIngestService(&stubLeadSource{}, &stubAutomation{}, stubDeduper{})

	_, err := svc.Ingest(context.Background(), eventFor("delivered", "lead@example.com"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestUntrackedAddressIsAcceptedNoOp(t *testing.T) {
	leads := &stubLeadSource{getErr: apperr.NotFound("lead not found")}
	svc := newIngestService(leads, &stubAutomation{}, stubDeduper{})

	resp, err := svc.Ingest(context.Background(), eventFor("opened", "stranger@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusUntracked {
		t.Fatalf("status = %q, want untracked", resp.Status)
	}
	if len(leads.activities) != 0 {
		t.Fatal("untracked events must not write activities")
	}
}

func TestIngestDuplicateIsSkipped(t *testing.T) {
	leads := &stubLeadSource{lead: leadsrepo.Lead{ID: uuid.New()}}
	svc := newIngestService(leads, &stubAutomation{}, stubDeduper{seen: true})

	resp, err := svc.Ingest(context.Background(), eventFor("clicked", "lead@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusDuplicate {
		t.Fatalf("status = %q, want duplicate", resp.Status)
	}
	if len(leads.activities) != 0 {
		t.Fatal("duplicates must not write activities")
	}
}

func TestIngestProcessesWhenDedupeFails(t *testing.T) {
	leads := &stubLeadSource{lead: leadsrepo.Lead{ID: uuid.New()}}
	svc := newIngestService(leads, &stubAutomation{active: true}, stubDeduper{err: errors.New("redis down")})

	resp, err := svc.Ingest(context.Background(), eventFor("opened", "lead@example.com"))
	if err != nil {
		t.Fatalf("dedupe failure must not fail ingestion: %v", err)
	}
	if resp.Status != StatusProcessed {
		t.Fatalf("status = %q, want processed", resp.Status)
	}
}

func TestIngestPolicyPerKind(t *testing.T) {
	leadID := uuid.New()

	cases := []struct {
		kind            string
		reason          string
		wantContactMade bool
		wantPause       string
	}{
		{kind: "opened"},
		{kind: "clicked", wantContactMade: true},
		{kind: "bounced", reason: "mailbox full", wantPause: "Email bounced: mailbox full"},
		{kind: "bounced", wantPause: "Email bounced"},
		{kind: "complained", wantPause: "Lead marked email as spam"},
		{kind: "failed", reason: "greylisted"},
	}

	for _, tc := range cases {
		t.Run(tc.kind+"/"+tc.reason, func(t *testing.T) {
			leads := &stubLeadSource{lead: leadsrepo.Lead{ID: leadID, Email: "lead@example.com"}}
			autos := &stubAutomation{active: true}
			svc := newIngestService(leads, autos, stubDeduper{})

			req := eventFor(tc.kind, "lead@example.com")
			req.Data.Reason = tc.reason

			resp, err := svc.Ingest(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Status != StatusProcessed {
				t.Fatalf("status = %q, want processed", resp.Status)
			}
			if len(leads.activities) != 1 {
				t.Fatalf("expected one activity, got %d", len(leads.activities))
			}
			activity := leads.activities[0]
			if activity.ContactMade != tc.wantContactMade {
				t.Fatalf("contactMade = %v, want %v", activity.ContactMade, tc.wantContactMade)
			}
			if !activity.Automated {
				t.Fatal("webhook activities must be marked automated")
			}

			pause, paused := autos.pauses[leadID]
			if tc.wantPause == "" {
				if paused {
					t.Fatalf("kind %q must not pause, got reason %q", tc.kind, pause)
				}
			} else if pause != tc.wantPause {
				t.Fatalf("pause reason = %q, want %q", pause, tc.wantPause)
			}
		})
	}
}

func TestIngestInactiveAutomationIsAcceptedNoOp(t *testing.T) {
	for _, kind := range []string{"clicked", "bounced", "opened"} {
		t.Run(kind, func(t *testing.T) {
			leads := &stubLeadSource{lead: leadsrepo.Lead{ID: uuid.New(), Email: "lead@example.com"}}
			autos := &stubAutomation{active: false}
			svc := newIngestService(leads, autos, stubDeduper{})

			resp, err := svc.Ingest(context.Background(), eventFor(kind, "lead@example.com"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Status != StatusInactive {
				t.Fatalf("status = %q, want %q", resp.Status, StatusInactive)
			}
			// No activity means no contactMade write, so a click for a paused
			// or absent automation can never reset the lead's aging.
			if len(leads.activities) != 0 {
				t.Fatalf("inactive automation must not write activities, got %d", len(leads.activities))
			}
			if len(autos.pauses) != 0 {
				t.Fatal("inactive automation must not be paused again")
			}
		})
	}
}

func TestIngestToleratesConcurrentPauseLoss(t *testing.T) {
	leads := &stubLeadSource{lead: leadsrepo.Lead{ID: uuid.New()}}
	autos := &stubAutomation{active: true, err: apperr.NotFound("automation not found")}
	svc := newIngestService(leads, autos, stubDeduper{})

	resp, err := svc.Ingest(context.Background(), eventFor("bounced", "lead@example.com"))
	if err != nil {
		t.Fatalf("pause race must not fail ingestion: %v", err)
	}
	if resp.Status != StatusProcessed {
		t.Fatalf("status = %q, want processed", resp.Status)
	}
}

func TestGeneratedAPIKeysHashConsistently(t *testing.T) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(plaintext, "whk_") {
		t.Fatalf("plaintext %q missing whk_ prefix", plaintext)
	}
	if !strings.HasPrefix(plaintext, prefix) || len(prefix) != 12 {
		t.Fatalf("prefix %q is not the first 12 chars of the key", prefix)
	}
	if HashKey(plaintext) != hash {
		t.Fatal("hash must be reproducible from the plaintext")
	}

	_, hash2, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == hash2 {
		t.Fatal("two generated keys must not collide")
	}
}
