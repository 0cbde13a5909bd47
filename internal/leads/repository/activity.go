package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	opAddActivity     = "leads.repository.add_activity"
	opListActivities  = "leads.repository.list_activities"
	opLatestContactAt = "leads.repository.latest_contact_at"
)

// ActivityDescriptionMaxLen is the canonical maximum character length for
// activity descriptions. Callers should use TruncateDescription when
// populating AddActivityParams.Description.
const ActivityDescriptionMaxLen = 400

// TruncateDescription trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateDescription(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

// Activity is an immutable, ordered log entry recording an event on a lead.
type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Seq         int64
	Type        string
	Title       string
	Description *string
	Status      string
	ContactMade bool
	Automated   bool
	DueDate     *time.Time
	OccurredAt  time.Time
	CreatedBy   string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// AddActivityParams holds the fields for a new activity entry.
type AddActivityParams struct {
	LeadID      uuid.UUID
	Type        string
	Title       string
	Description *string
	Status      string
	ContactMade bool
	Automated   bool
	DueDate     *time.Time
	OccurredAt  time.Time
	CreatedBy   string
	Metadata    map[string]any
}

// AddActivity appends an entry to the lead's activity log. This is the sole
// approved write path for contact_made. When ContactMade is set the lead's
// last_contact_date is advanced in the same transaction so the aging
// calculator and this append can never observe a half-applied contact.
func (r *Repository) AddActivity(ctx context.Context, p AddActivityParams) (Activity, error) {
	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return Activity{}, apperr.Wrap(apperr.KindInternal, "marshal activity metadata failed", err).WithOp(opAddActivity)
	}

	status := p.Status
	if status == "" {
		status = "done"
	}
	occurredAt := p.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Activity{}, apperr.Wrap(apperr.KindInternal, "begin activity tx failed", err).WithOp(opAddActivity)
	}
	defer tx.Rollback(ctx)

	var activity Activity
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_activities (
			lead_id, type, title, description, status, contact_made, automated,
			due_date, occurred_at, created_by, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, lead_id, seq, type, title, description, status, contact_made,
		          automated, due_date, occurred_at, created_by, created_at
	`, p.LeadID, p.Type, p.Title, p.Description, status, p.ContactMade, p.Automated,
		p.DueDate, occurredAt, p.CreatedBy, metadataJSON).Scan(
		&activity.ID,
		&activity.LeadID,
		&activity.Seq,
		&activity.Type,
		&activity.Title,
		&activity.Description,
		&activity.Status,
		&activity.ContactMade,
		&activity.Automated,
		&activity.DueDate,
		&activity.OccurredAt,
		&activity.CreatedBy,
		&activity.CreatedAt,
	)
	if err != nil {
		return Activity{}, apperr.Wrap(apperr.KindInternal, "insert activity failed", err).WithOp(opAddActivity)
	}
	activity.Metadata = p.Metadata

	if p.ContactMade {
		if _, err := tx.Exec(ctx, `
			UPDATE leads
			SET last_contact_date = greatest(coalesce(last_contact_date, 'epoch'::timestamptz), $2),
			    updated_at = now()
			WHERE id = $1
		`, p.LeadID, occurredAt); err != nil {
			return Activity{}, apperr.Wrap(apperr.KindInternal, "advance last contact failed", err).WithOp(opAddActivity)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Activity{}, apperr.Wrap(apperr.KindInternal, "commit activity tx failed", err).WithOp(opAddActivity)
	}

	return activity, nil
}

// ListActivities returns a lead's activity log, oldest first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, seq, type, title, description, status, contact_made,
		       automated, due_date, occurred_at, created_by, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY seq
	`, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list activities failed", err).WithOp(opListActivities)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		var rawMetadata []byte
		if err := rows.Scan(
			&a.ID, &a.LeadID, &a.Seq, &a.Type, &a.Title, &a.Description, &a.Status,
			&a.ContactMade, &a.Automated, &a.DueDate, &a.OccurredAt, &a.CreatedBy,
			&rawMetadata, &a.CreatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan activity failed", err).WithOp(opListActivities)
		}
		if len(rawMetadata) > 0 {
			_ = json.Unmarshal(rawMetadata, &a.Metadata)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate activities failed", err).WithOp(opListActivities)
	}
	return items, nil
}

// LatestContactAt returns the lead's effective last contact: the greatest of
// last_contact_date and the most recent contact-made activity. A nil result
// means the lead has never been contacted; aging falls back to created_at.
func (r *Repository) LatestContactAt(ctx context.Context, leadID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT greatest(
			(SELECT last_contact_date FROM leads WHERE id = $1),
			(SELECT max(occurred_at) FROM lead_activities WHERE lead_id = $1 AND contact_made)
		)
	`, leadID).Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "latest contact lookup failed", err).WithOp(opLatestContactAt)
	}
	return latest, nil
}
