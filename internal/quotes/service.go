package quotes

import (
	"context"
	"strings"
	"time"

	leadsdomain "crm_portal_backend/internal/leads/domain"
	leadsrepo "crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/apperr"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// quoteSendTimeout bounds the proposal email delivery.
const quoteSendTimeout = 30 * time.Second

// Store is the persistence surface of the quotes service. Satisfied by
// *Repository.
type Store interface {
	NextQuoteNumber(ctx context.Context) (string, error)
	CreateDraft(ctx context.Context, quoteNumber string, p CreateQuoteParams) (Quote, error)
	GetByID(ctx context.Context, id uuid.UUID) (Quote, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]Quote, error)
	Finalize(ctx context.Context, id uuid.UUID) (Quote, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (Quote, error)
}

// LeadSource resolves leads and records activities. Satisfied by
// *leadsrepo.Repository.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	AddActivity(ctx context.Context, p leadsrepo.AddActivityParams) (leadsrepo.Activity, error)
}

// Mailer sends the finalized proposal. Satisfied by email.Sender
// implementations.
type Mailer interface {
	SendQuoteEmail(ctx context.Context, toEmail, leadName, quoteNumber, quoteURL string) error
}

// Config provides the public base URL for proposal links.
type Config interface {
	GetAppBaseURL() string
}

// Service orchestrates quote drafting and finalization.
type Service struct {
	store  Store
	leads  LeadSource
	mailer Mailer
	cfg    Config
	log    *logger.Logger

	now func() time.Time
}

// NewService creates the quotes service.
func NewService(store Store, leads LeadSource, mailer Mailer, cfg Config, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		leads:  leads,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// CreateDraft creates a draft quote for a lead. The stored title always
// carries the draft marker, and text fields left blank get placeholder copy
// so an unfinished draft can never read like a sent proposal.
func (s *Service) CreateDraft(ctx context.Context, p CreateQuoteParams) (Quote, error) {
	lead, err := s.leads.GetByID(ctx, p.LeadID)
	if err != nil {
		return Quote{}, err
	}
	if lead.IsArchived {
		return Quote{}, apperr.Validation("cannot draft a quote for an archived lead")
	}

	if !strings.HasPrefix(p.Title, DraftPrefix) {
		p.Title = DraftPrefix + " " + p.Title
	}
	if strings.TrimSpace(p.Terms) == "" {
		p.Terms = PlaceholderTerms
	}
	if strings.TrimSpace(p.PaymentTerms) == "" {
		p.PaymentTerms = PlaceholderPaymentTerms
	}
	if strings.TrimSpace(p.Validity) == "" {
		p.Validity = PlaceholderValidity
	}

	number, err := s.store.NextQuoteNumber(ctx)
	if err != nil {
		return Quote{}, err
	}
	return s.store.CreateDraft(ctx, number, p)
}

// Get returns a quote.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	return s.store.GetByID(ctx, id)
}

// ListByLead returns a lead's quotes.
func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Quote, error) {
	return s.store.ListByLead(ctx, leadID)
}

// Finalize promotes a draft to a sent proposal: placeholder fields get their
// default copy, sent_at is stamped once, the lead gets the proposal email,
// and the send is logged as a contact. Finalizing a quote that already left
// draft is a no-op that returns the stored row; nothing is re-sent.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, finalizedBy string) (Quote, error) {
	quote, finalizedNow, err := s.store.Finalize(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if !finalizedNow {
		return quote, nil
	}

	lead, err := s.leads.GetByID(ctx, quote.LeadID)
	if err != nil {
		// The finalize itself committed; surface the lookup failure but keep
		// the quote final.
		return quote, err
	}

	quoteURL := s.cfg.GetAppBaseURL() + "/quotes/" + quote.ID.String()
	sendCtx, cancel := context.WithTimeout(ctx, quoteSendTimeout)
	err = s.mailer.SendQuoteEmail(sendCtx, lead.Email, lead.Name, quote.QuoteNumber, quoteURL)
	cancel()
	if err != nil {
		// sent_at records finalization, not delivery; the failed delivery is
		// logged and the operator can re-send from the lead view.
		s.log.Error("quote email send failed", "error", err, "quoteId", quote.ID, "leadId", quote.LeadID)
	}

	if _, err := s.leads.AddActivity(ctx, leadsrepo.AddActivityParams{
		LeadID:      quote.LeadID,
		Type:        leadsdomain.ActivityTypeEmail,
		Title:       "Proposal sent: " + quote.QuoteNumber,
		ContactMade: true,
		OccurredAt:  s.now(),
		CreatedBy:   finalizedBy,
		Metadata: map[string]any{
			"quoteId":     quote.ID.String(),
			"quoteNumber": quote.QuoteNumber,
		},
	}); err != nil {
		s.log.Error("record proposal activity failed", "error", err, "quoteId", quote.ID)
	}

	return quote, nil
}

// Accept marks a sent proposal as accepted by the lead.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, recordedBy string) (Quote, error) {
	return s.resolve(ctx, id, StatusAccepted, recordedBy)
}

// Reject marks a sent proposal as rejected by the lead.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, recordedBy string) (Quote, error) {
	return s.resolve(ctx, id, StatusRejected, recordedBy)
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, status, recordedBy string) (Quote, error) {
	quote, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return Quote{}, err
	}

	if _, err := s.leads.AddActivity(ctx, leadsrepo.AddActivityParams{
		LeadID:      quote.LeadID,
		Type:        leadsdomain.ActivityTypeNote,
		Title:       "Proposal " + status + ": " + quote.QuoteNumber,
		ContactMade: true,
		OccurredAt:  s.now(),
		CreatedBy:   recordedBy,
		Metadata: map[string]any{
			"quoteId":     quote.ID.String(),
			"quoteNumber": quote.QuoteNumber,
			"status":      status,
		},
	}); err != nil {
		s.log.Error("record proposal outcome activity failed", "error", err, "quoteId", quote.ID)
	}

	return quote, nil
}
