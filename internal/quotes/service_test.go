package quotes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	leadsdomain "crm_portal_backend/internal/leads/domain"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type stubQuoteStore struct {
	created      []CreateQuoteParams
	quote        Quote
	finalizedNow bool
	statuses     []string
}

func (s *stubQuoteStore) NextQuoteNumber(context.Context) (string, error) {
	return "Q-2026-0001", nil
}

func (s *stubQuoteStore) CreateDraft(_ context.Context, quoteNumber string, p CreateQuoteParams) (Quote, error) {
	s.created = append(s.created, p)
	return Quote{
		ID:           uuid.New(),
		LeadID:       p.LeadID,
		QuoteNumber:  quoteNumber,
		Status:       StatusDraft,
		Title:        p.Title,
		Terms:        p.Terms,
		PaymentTerms: p.PaymentTerms,
		Validity:     p.Validity,
		TotalCents:   p.TotalCents,
	}, nil
}

func (s *stubQuoteStore) GetByID(context.Context, uuid.UUID) (Quote, error) {
	return s.quote, nil
}

func (s *stubQuoteStore) ListByLead(context.Context, uuid.UUID) ([]Quote, error) {
	return []Quote{s.quote}, nil
}

func (s *stubQuoteStore) Finalize(context.Context, uuid.UUID) (Quote, bool, error) {
	return s.quote, s.finalizedNow, nil
}

func (s *stubQuoteStore) SetStatus(_ context.Context, _ uuid.UUID, status string) (Quote, error) {
	s.statuses = append(s.statuses, status)
	q := s.quote
	q.Status = status
	return q, nil
}

type stubQuoteLeads struct {
	lead       leadsrepo.Lead
	activities []leadsrepo.AddActivityParams
}

func (s *stubQuoteLeads) GetByID(context.Context, uuid.UUID) (leadsrepo.Lead, error) {
	return s.lead, nil
}

func (s *stubQuoteLeads) AddActivity(_ context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error) {
	s.activities = append(s.activities, p)
	return leadsrepo.Activity{}, nil
}

type stubQuoteMailer struct {
	sent []string
	err  error
}

func (s *stubQuoteMailer) SendQuoteEmail(_ context.Context, toEmail, _, _, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, toEmail)
	return nil
}

type stubQuoteConfig struct{}

func (stubQuoteConfig) GetAppBaseURL() string { return "https://crm.example.com" }

func newQuoteService(store *stubQuoteStore, leads *stubQuoteLeads, mailer *stubQuoteMailer) *Service {
	return NewService(store, leads, mailer, stubQuoteConfig{}, logger.New("test"))
}

func TestCreateDraftFillsPlaceholders(t *testing.T) {
	store := &stubQuoteStore{}
	leads := &stubQuoteLeads{lead: leadsrepo.Lead{ID: uuid.New()}}
	svc := newQuoteService(store, leads, &stubQuoteMailer{})

	quote, err := svc.CreateDraft(context.Background(), CreateQuoteParams{
		LeadID: leads.lead.ID,
		Title:  "Kitchen renovation",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(quote.Title, DraftPrefix) {
		t.Fatalf("draft title %q missing prefix", quote.Title)
	}
	if quote.Terms != PlaceholderTerms || quote.PaymentTerms != PlaceholderPaymentTerms || quote.Validity != PlaceholderValidity {
		t.Fatalf("blank fields must get placeholder copy: %+v", quote)
	}
}

func TestCreateDraftKeepsProvidedCopy(t *testing.T) {
	store := &stubQuoteStore{}
	leads := &stubQuoteLeads{lead: leadsrepo.Lead{ID: uuid.New()}}
	svc := newQuoteService(store, leads, &stubQuoteMailer{})

	quote, err := svc.CreateDraft(context.Background(), CreateQuoteParams{
		LeadID: leads.lead.ID,
		Title:  DraftPrefix + " Bathroom",
		Terms:  "Custom terms",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Title != DraftPrefix+" Bathroom" {
		t.Fatalf("existing prefix must not be doubled: %q", quote.Title)
	}
	if quote.Terms != "Custom terms" {
		t.Fatalf("provided terms must be kept: %q", quote.Terms)
	}
}

func TestCreateDraftRejectsArchivedLead(t *testing.T) {
	leads := &stubQuoteLeads{lead: leadsrepo.Lead{ID: uuid.New(), IsArchived: true}}
	svc := newQuoteService(&stubQuoteStore{}, leads, &stubQuoteMailer{})

	_, err := svc.CreateDraft(context.Background(), CreateQuoteParams{LeadID: leads.lead.ID, Title: "x"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFinalizeSendsProposalOnce(t *testing.T) {
	sentAt := time.Now()
	store := &stubQuoteStore{
		finalizedNow: true,
		quote: Quote{
			ID:          uuid.New(),
			LeadID:      uuid.New(),
			QuoteNumber: "Q-2026-0001",
			Status:      StatusSent,
			SentAt:      &sentAt,
		},
	}
	leads := &stubQuoteLeads{lead: leadsrepo.Lead{ID: store.quote.LeadID, Email: "lead@example.com", Name: "Lead"}}
	mailer := &stubQuoteMailer{}
	svc := newQuoteService(store, leads, mailer)

	quote, err := svc.Finalize(context.Background(), store.quote.ID, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Status != StatusSent {
		t.Fatalf("status = %q, want sent", quote.Status)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one proposal email, got %d", len(mailer.sent))
	}
	if len(leads.activities) != 1 || !leads.activities[0].ContactMade {
		t.Fatalf("finalize must log a contact activity: %+v", leads.activities)
	}
	if leads.activities[0].Type != leadsdomain.ActivityTypeEmail {
		t.Fatalf("unexpected activity type %q", leads.activities[0].Type)
	}
}

func TestFinalizeRepeatIsNoOp(t *testing.T) {
	store := &stubQuoteStore{
		finalizedNow: false,
		quote:        Quote{ID: uuid.New(), Status: StatusSent},
	}
	leads := &stubQuoteLeads{}
	mailer := &stubQuoteMailer{}
	svc := newQuoteService(store, leads, mailer)

	if _, err := svc.Finalize(context.Background(), store.quote.ID, "admin-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 0 || len(leads.activities) != 0 {
		t.Fatal("repeated finalize must not re-send or re-log")
	}
}

func TestFinalizeToleratesEmailFailure(t *testing.T) {
	store := &stubQuoteStore{
		finalizedNow: true,
		quote:        Quote{ID: uuid.New(), LeadID: uuid.New(), QuoteNumber: "Q-2026-0002", Status: StatusSent},
	}
	leads := &stubQuoteLeads{lead: leadsrepo.Lead{ID: store.quote.LeadID, Email: "lead@example.com"}}
	mailer := &stubQuoteMailer{err: errors.New("smtp down")}
	svc := newQuoteService(store, leads, mailer)

	quote, err := svc.Finalize(context.Background(), store.quote.ID, "admin-1")
	if err != nil {
		t.Fatalf("delivery failure must not fail finalization: %v", err)
	}
	if quote.Status != StatusSent {
		t.Fatalf("status = %q, want sent", quote.Status)
	}
}

func TestAcceptAndRejectRecordOutcome(t *testing.T) {
	store := &stubQuoteStore{quote: Quote{ID: uuid.New(), LeadID: uuid.New(), QuoteNumber: "Q-2026-0003", Status: StatusSent}}
	leads := &stubQuoteLeads{}
	svc := newQuoteService(store, leads, &stubQuoteMailer{})

	accepted, err := svc.Accept(context.Background(), store.quote.ID, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("status = %q, want accepted", accepted.Status)
	}

	rejected, err := svc.Reject(context.Background(), store.quote.ID, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("status = %q, want rejected", rejected.Status)
	}
	if len(leads.activities) != 2 {
		t.Fatalf("expected outcome activities, got %d", len(leads.activities))
	}
}
