// Package repository provides data access for the leads bounded context.
// All mutations are single-column (field-path) updates so concurrent writers
// such as the aging sweep and a webhook handler never clobber unrelated fields.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate           = "leads.repository.create"
	opGetByID          = "leads.repository.get_by_id"
	opGetByEmail       = "leads.repository.get_active_by_email"
	opUpdateStage      = "leads.repository.update_stage"
	opSetAgingDays     = "leads.repository.set_aging_days"
	opSetAgingPaused   = "leads.repository.set_aging_paused"
	opSetLastContact   = "leads.repository.set_last_contact_date"
	opArchive          = "leads.repository.archive"
	opListForSweep     = "leads.repository.list_for_aging_sweep"
	opListAlerting     = "leads.repository.list_alerting"
	opUpdateField      = "leads.repository.update_field"

	errLeadNotFound = "lead not found"
)

// Lead is the persisted representation of a prospective client.
type Lead struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Phone           string
	Stage           string
	Source          string
	ProjectTypes    []string
	Value           float64
	Budget          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastContactDate *time.Time
	AgingDays       int
	AgingPaused     bool
	IsActive        bool
	IsArchived      bool
	ArchivedAt      *time.Time
	ArchivedBy      *string
}

// CreateLeadParams holds the fields needed to insert a new lead.
type CreateLeadParams struct {
	Name         string
	Email        string
	Phone        string
	Stage        string
	Source       string
	ProjectTypes []string
	Value        float64
	Budget       string
}

// Repository provides lead persistence backed by pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadSelectCols = `
	id, name, email, phone, stage, source, project_types, value, budget,
	created_at, updated_at, last_contact_date, aging_days, aging_paused,
	is_active, is_archived, archived_at, archived_by`

type leadRowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s leadRowScanner) (Lead, error) {
	var lead Lead
	err := s.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Stage,
		&lead.Source,
		&lead.ProjectTypes,
		&lead.Value,
		&lead.Budget,
		&lead.CreatedAt,
		&lead.UpdatedAt,
		&lead.LastContactDate,
		&lead.AgingDays,
		&lead.AgingPaused,
		&lead.IsActive,
		&lead.IsArchived,
		&lead.ArchivedAt,
		&lead.ArchivedBy,
	)
	return lead, err
}

// Create inserts a new lead and returns the stored row.
func (r *Repository) Create(ctx context.Context, p CreateLeadParams) (Lead, error) {
	projectTypes := p.ProjectTypes
	if projectTypes == nil {
		projectTypes = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, email, phone, stage, source, project_types, value, budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING`+leadSelectCols+`
	`, p.Name, p.Email, p.Phone, p.Stage, p.Source, projectTypes, p.Value, p.Budget)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, apperr.Wrap(apperr.KindInternal, "create lead failed", err).WithOp(opCreate)
	}
	return lead, nil
}

// GetByID returns a lead by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadSelectCols+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(errLeadNotFound).WithOp(opGetByID)
	}
	if err != nil {
		return Lead{}, apperr.Wrap(apperr.KindInternal, "get lead failed", err).WithOp(opGetByID)
	}
	return lead, nil
}

// GetActiveByEmail returns the active, non-archived lead with the given email.
// Webhook events for untracked addresses resolve to NotFound, which the
// ingestion handler treats as a success-no-op.
func (r *Repository) GetActiveByEmail(ctx context.Context, email string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadSelectCols+`
		FROM leads
		WHERE lower(email) = lower($1) AND is_active AND NOT is_archived
		ORDER BY created_at DESC
		LIMIT 1
	`, email)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(errLeadNotFound).WithOp(opGetByEmail)
	}
	if err != nil {
		return Lead{}, apperr.Wrap(apperr.KindInternal, "get lead by email failed", err).WithOp(opGetByEmail)
	}
	return lead, nil
}

// UpdateStage sets the pipeline stage. The previous stage is returned so the
// caller can write version history without a separate read.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) (previous string, err error) {
	err = r.pool.QueryRow(ctx, `
		UPDATE leads l
		SET stage = $2, updated_at = now()
		FROM (SELECT stage AS prev FROM leads WHERE id = $1) old
		WHERE l.id = $1
		RETURNING old.prev
	`, id, stage).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound(errLeadNotFound).WithOp(opUpdateStage)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "update lead stage failed", err).WithOp(opUpdateStage)
	}
	return previous, nil
}

// SetAgingDays writes the derived aging value only when it changed, keeping
// repeated sweeps idempotent and the version log free of redundant writes.
// Returns true when a row was actually updated.
func (r *Repository) SetAgingDays(ctx context.Context, id uuid.UUID, agingDays int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET aging_days = $2, updated_at = now()
		WHERE id = $1 AND aging_days IS DISTINCT FROM $2
	`, id, agingDays)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "set aging days failed", err).WithOp(opSetAgingDays)
	}
	return tag.RowsAffected() > 0, nil
}

// SetAgingPaused toggles the manual aging-alert exemption.
func (r *Repository) SetAgingPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET aging_paused = $2, updated_at = now() WHERE id = $1
	`, id, paused)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "set aging paused failed", err).WithOp(opSetAgingPaused)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errLeadNotFound).WithOp(opSetAgingPaused)
	}
	return nil
}

// SetLastContactDate advances last_contact_date. The greatest-value guard
// makes replayed webhooks and out-of-order timestamps safe: the date only
// ever moves forward.
func (r *Repository) SetLastContactDate(ctx context.Context, id uuid.UUID, contactAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET last_contact_date = greatest(coalesce(last_contact_date, 'epoch'::timestamptz), $2),
		    updated_at = now()
		WHERE id = $1
	`, id, contactAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "set last contact date failed", err).WithOp(opSetLastContact)
	}
	return nil
}

// Archive soft-deletes a lead. Archiving is idempotent; re-archiving an
// archived lead leaves the original archived_at/archived_by untouched.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, archivedBy string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET is_archived = TRUE,
		    archived_at = coalesce(archived_at, now()),
		    archived_by = coalesce(archived_by, $2),
		    updated_at = now()
		WHERE id = $1
	`, id, archivedBy)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "archive lead failed", err).WithOp(opArchive)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errLeadNotFound).WithOp(opArchive)
	}
	return nil
}

// UpdateField applies a single tracked-field update and returns the previous
// value as text for version history. Only whitelisted columns are accepted.
func (r *Repository) UpdateField(ctx context.Context, id uuid.UUID, field string, value any) (previous string, err error) {
	column, ok := updatableColumns[field]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("field %q is not updatable", field)).WithOp(opUpdateField)
	}

	query := fmt.Sprintf(`
		UPDATE leads l
		SET %[1]s = $2, updated_at = now()
		FROM (SELECT %[1]s::text AS prev FROM leads WHERE id = $1) old
		WHERE l.id = $1
		RETURNING coalesce(old.prev, '')
	`, column)

	err = r.pool.QueryRow(ctx, query, id, value).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound(errLeadNotFound).WithOp(opUpdateField)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "update lead field failed", err).WithOp(opUpdateField)
	}
	return previous, nil
}

// updatableColumns whitelists tracked fields for UpdateField. Stage and the
// derived aging columns have dedicated methods and are deliberately absent.
var updatableColumns = map[string]string{
	"name":   "name",
	"phone":  "phone",
	"source": "source",
	"value":  "value",
	"budget": "budget",
}

// ListForAgingSweep returns all leads eligible for aging recomputation.
func (r *Repository) ListForAgingSweep(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadSelectCols+`
		FROM leads
		WHERE is_active AND NOT is_archived
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list leads for sweep failed", err).WithOp(opListForSweep)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListAlerting returns the current alerting set: active, non-archived,
// non-terminal leads whose aging meets the threshold and are not manually
// exempted.
func (r *Repository) ListAlerting(ctx context.Context, thresholdDays int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadSelectCols+`
		FROM leads
		WHERE is_active
		  AND NOT is_archived
		  AND NOT aging_paused
		  AND aging_days >= $1
		  AND stage NOT IN ('Won', 'Lost')
		ORDER BY aging_days DESC, created_at
	`, thresholdDays)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list alerting leads failed", err).WithOp(opListAlerting)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
