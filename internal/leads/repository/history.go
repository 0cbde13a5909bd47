package repository

import (
	"context"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	opAppendHistory = "leads.repository.append_version_history"
	opListHistory   = "leads.repository.list_version_history"
)

// VersionEntry is one row of the append-only audit trail: a single tracked
// field change. Entries are never mutated or removed.
type VersionEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Field     string
	OldValue  string
	NewValue  string
	ChangedBy string
	Comment   string
	CreatedAt time.Time
}

// AppendVersionHistoryParams holds one field change to record.
type AppendVersionHistoryParams struct {
	LeadID    uuid.UUID
	Field     string
	OldValue  string
	NewValue  string
	ChangedBy string
	Comment   string
}

// AppendVersionHistory appends audit entries, one per changed tracked field.
// Entries are batched into a single round trip.
func (r *Repository) AppendVersionHistory(ctx context.Context, entries []AppendVersionHistoryParams) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO lead_version_history (lead_id, field, old_value, new_value, changed_by, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.LeadID, e.Field, e.OldValue, e.NewValue, e.ChangedBy, e.Comment)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return apperr.Wrap(apperr.KindInternal, "append version history failed", err).WithOp(opAppendHistory)
		}
	}
	return nil
}

// ListVersionHistory returns the audit trail for a lead, oldest first.
func (r *Repository) ListVersionHistory(ctx context.Context, leadID uuid.UUID) ([]VersionEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, field, old_value, new_value, changed_by, comment, created_at
		FROM lead_version_history
		WHERE lead_id = $1
		ORDER BY created_at
	`, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list version history failed", err).WithOp(opListHistory)
	}
	defer rows.Close()

	items := make([]VersionEntry, 0)
	for rows.Next() {
		var e VersionEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Field, &e.OldValue, &e.NewValue, &e.ChangedBy, &e.Comment, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan version history failed", err).WithOp(opListHistory)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate version history failed", err).WithOp(opListHistory)
	}
	return items, nil
}
