// Package quotes manages proposal documents attached to leads: drafts carry
// "Draft -" placeholder copy in their text fields, and finalization swaps
// any remaining placeholder for default copy and stamps the send time
// exactly once.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opNextNumber = "quotes.repository.next_number"
	opCreate     = "quotes.repository.create"
	opGetByID    = "quotes.repository.get_by_id"
	opListByLead = "quotes.repository.list_by_lead"
	opFinalize   = "quotes.repository.finalize"
	opSetStatus  = "quotes.repository.set_status"

	errQuoteNotFound = "quote not found"
)

// DraftPrefix marks placeholder copy in a draft's text fields.
const DraftPrefix = "Draft -"

// Quote statuses. Draft moves to sent exactly once; accepted and rejected
// only follow sent.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Default copy substituted for fields still holding their placeholder at
// finalization.
const (
	DefaultTerms        = "Standard terms and conditions apply."
	DefaultPaymentTerms = "Payment due within 14 days of acceptance."
	DefaultValidity     = "This proposal is valid for 30 days."
)

// Placeholder copy stored on drafts whose fields were left blank. The
// DraftPrefix is what finalization keys on.
const (
	PlaceholderTerms        = DraftPrefix + " terms pending review"
	PlaceholderPaymentTerms = DraftPrefix + " payment terms pending review"
	PlaceholderValidity     = DraftPrefix + " validity pending review"
)

// Quote is the persisted proposal document.
type Quote struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	QuoteNumber  string
	Status       string
	Title        string
	Terms        string
	PaymentTerms string
	Validity     string
	TotalCents   int64
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateQuoteParams holds the fields for a new draft.
type CreateQuoteParams struct {
	LeadID       uuid.UUID
	Title        string
	Terms        string
	PaymentTerms string
	Validity     string
	TotalCents   int64
}

// Repository provides quote persistence backed by pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quoteSelectCols = `
	id, lead_id, quote_number, status, title, terms, payment_terms, validity,
	total_cents, sent_at, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.LeadID, &q.QuoteNumber, &q.Status, &q.Title, &q.Terms,
		&q.PaymentTerms, &q.Validity, &q.TotalCents, &q.SentAt, &q.CreatedAt, &q.UpdatedAt,
	)
	return q, err
}

// NextQuoteNumber atomically generates the next quote number.
func (r *Repository) NextQuoteNumber(ctx context.Context) (string, error) {
	var nextNum int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quote_counters (id, last_number)
		VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET last_number = quote_counters.last_number + 1
		RETURNING last_number
	`).Scan(&nextNum)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "generate quote number failed", err).WithOp(opNextNumber)
	}
	return fmt.Sprintf("Q-%d-%04d", time.Now().Year(), nextNum), nil
}

// CreateDraft inserts a new draft quote.
func (r *Repository) CreateDraft(ctx context.Context, quoteNumber string, p CreateQuoteParams) (Quote, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO quotes (lead_id, quote_number, status, title, terms, payment_terms, validity, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING`+quoteSelectCols+`
	`, p.LeadID, quoteNumber, StatusDraft, p.Title, p.Terms, p.PaymentTerms, p.Validity, p.TotalCents)

	quote, err := scanQuote(row)
	if err != nil {
		return Quote{}, apperr.Wrap(apperr.KindInternal, "create draft quote failed", err).WithOp(opCreate)
	}
	return quote, nil
}

// GetByID returns a quote by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quote, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+quoteSelectCols+` FROM quotes WHERE id = $1`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(errQuoteNotFound).WithOp(opGetByID)
	}
	if err != nil {
		return Quote{}, apperr.Wrap(apperr.KindInternal, "get quote failed", err).WithOp(opGetByID)
	}
	return quote, nil
}

// ListByLead returns a lead's quotes, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+quoteSelectCols+`
		FROM quotes
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list quotes failed", err).WithOp(opListByLead)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan quote failed", err).WithOp(opListByLead)
		}
		items = append(items, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate quotes failed", err).WithOp(opListByLead)
	}
	return items, nil
}

// finalizedCopy applies the draft-to-sent substitution rule: the title drops
// its "Draft -" marker, and every text field still holding placeholder copy
// gets the default copy. Fields edited past their placeholder are kept as-is.
func finalizedCopy(q Quote) Quote {
	q.Title = strings.TrimSpace(strings.TrimPrefix(q.Title, DraftPrefix))
	q.Terms = defaultIfPlaceholder(q.Terms, DefaultTerms)
	q.PaymentTerms = defaultIfPlaceholder(q.PaymentTerms, DefaultPaymentTerms)
	q.Validity = defaultIfPlaceholder(q.Validity, DefaultValidity)
	return q
}

func defaultIfPlaceholder(value, defaultCopy string) string {
	if strings.HasPrefix(value, DraftPrefix) {
		return defaultCopy
	}
	return value
}

// Finalize promotes a draft to sent: placeholder copy is swapped for the
// defaults and sent_at is stamped only by the first transition. The row is
// locked for the read-modify-write, and a quote past draft is returned
// unchanged with the flag reporting that this call did nothing.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID) (Quote, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Quote{}, false, apperr.Wrap(apperr.KindInternal, "begin finalize failed", err).WithOp(opFinalize)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT`+quoteSelectCols+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, false, apperr.NotFound(errQuoteNotFound).WithOp(opFinalize)
	}
	if err != nil {
		return Quote{}, false, apperr.Wrap(apperr.KindInternal, "lock quote failed", err).WithOp(opFinalize)
	}
	if quote.Status != StatusDraft {
		return quote, false, nil
	}

	final := finalizedCopy(quote)
	row = tx.QueryRow(ctx, `
		UPDATE quotes
		SET status = $2, title = $3, terms = $4, payment_terms = $5, validity = $6,
		    sent_at = coalesce(sent_at, now()),
		    updated_at = now()
		WHERE id = $1
		RETURNING`+quoteSelectCols+`
	`, id, StatusSent, final.Title, final.Terms, final.PaymentTerms, final.Validity)

	quote, err = scanQuote(row)
	if err != nil {
		return Quote{}, false, apperr.Wrap(apperr.KindInternal, "finalize quote failed", err).WithOp(opFinalize)
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, false, apperr.Wrap(apperr.KindInternal, "commit finalize failed", err).WithOp(opFinalize)
	}
	return quote, true, nil
}

// SetStatus moves a sent quote to accepted or rejected. The status guard
// rejects skipping the sent step.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) (Quote, error) {
	if status != StatusAccepted && status != StatusRejected {
		return Quote{}, apperr.Validation(fmt.Sprintf("invalid target status %q", status)).WithOp(opSetStatus)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE quotes
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING`+quoteSelectCols+`
	`, id, status, StatusSent)

	quote, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Quote{}, getErr
		}
		return Quote{}, apperr.Validation("only a sent quote can be " + status).WithOp(opSetStatus)
	}
	if err != nil {
		return Quote{}, apperr.Wrap(apperr.KindInternal, "set quote status failed", err).WithOp(opSetStatus)
	}
	return quote, nil
}
