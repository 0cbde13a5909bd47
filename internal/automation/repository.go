package automation

import (
	"context"
	"errors"
	"time"

	"crm_portal_backend/internal/automation/domain"
	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opInitialize    = "automation.repository.initialize"
	opGetByLeadID   = "automation.repository.get_by_lead_id"
	opPause         = "automation.repository.pause"
	opResume        = "automation.repository.resume"
	opMarkStageSent = "automation.repository.mark_stage_sent"
	opComplete      = "automation.repository.complete"
	opSetReplied    = "automation.repository.set_lead_replied"
	opDeactivate    = "automation.repository.deactivate"
	opListDue       = "automation.repository.list_due"
)

// Record is one lead's drip automation row.
type Record struct {
	LeadID     uuid.UUID
	State      domain.State
	SeededAt   time.Time
	LastSentAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DueLead is an automation candidate joined with the lead fields the advance
// step needs for rendering and guarding.
type DueLead struct {
	LeadID     uuid.UUID
	Email      string
	Name       string
	Stage      string
	State      domain.State
	SeededAt   time.Time
	LastSentAt *time.Time
}

// Repository persists drip automation state in email_automations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the automation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Initialize seeds (or re-seeds) a lead's automation at step zero in the
// active state. Re-seeding on a stage change clears any pause, the completed
// marker, and the send cursor, so the new stage's sequence starts clean. The
// reply flag is cleared only when clearReplied is set: engagement pauses
// from a previous stage should not leak forward, but a manual re-seed keeps
// the operator's knowledge that the lead already replied.
func (r *Repository) Initialize(ctx context.Context, leadID uuid.UUID, clearReplied bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO email_automations (lead_id, is_active, current_stage, lead_replied)
		VALUES ($1, true, 0, false)
		ON CONFLICT (lead_id) DO UPDATE SET
			is_active = true,
			current_stage = 0,
			seeded_at = now(),
			last_sent_at = NULL,
			paused_reason = NULL,
			paused_at = NULL,
			lead_replied = CASE WHEN $2 THEN false ELSE email_automations.lead_replied END,
			updated_at = now()
	`, leadID, clearReplied)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "initialize automation failed", err).WithOp(opInitialize)
	}
	return nil
}

// GetByLeadID loads a lead's automation record.
func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (Record, error) {
	var (
		rec          Record
		isActive     bool
		stage        int
		pausedReason *string
		pausedAt     *time.Time
		leadReplied  bool
	)
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id, is_active, current_stage, seeded_at, last_sent_at,
		       paused_reason, paused_at, lead_replied, created_at, updated_at
		FROM email_automations
		WHERE lead_id = $1
	`, leadID).Scan(
		&rec.LeadID, &isActive, &stage, &rec.SeededAt, &rec.LastSentAt,
		&pausedReason, &pausedAt, &leadReplied, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.New(apperr.KindNotFound, "automation not found").WithOp(opGetByLeadID)
	}
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, "get automation failed", err).WithOp(opGetByLeadID)
	}

	reason := ""
	if pausedReason != nil {
		reason = *pausedReason
	}
	rec.State = domain.FromRecord(isActive, stage, reason, pausedAt, leadReplied)
	return rec, nil
}

// Pause suspends a lead's automation with a mandatory reason. Pausing an
// already-paused automation keeps the original reason and timestamp, so the
// first cause wins and repeated webhook deliveries cannot rewrite history.
func (r *Repository) Pause(ctx context.Context, leadID uuid.UUID, reason string, at time.Time) error {
	if reason == "" {
		return apperr.Wrap(apperr.KindValidation, "pause requires a reason", domain.ErrReasonRequired).WithOp(opPause)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET is_active = false,
		    paused_reason = coalesce(paused_reason, $2),
		    paused_at = coalesce(paused_at, $3),
		    updated_at = now()
		WHERE lead_id = $1
	`, leadID, reason, at)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "pause automation failed", err).WithOp(opPause)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "automation not found").WithOp(opPause)
	}
	return nil
}

// Resume reactivates a paused automation at its current step and clears the
// pause bookkeeping along with the reply flag.
func (r *Repository) Resume(ctx context.Context, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET is_active = true,
		    paused_reason = NULL,
		    paused_at = NULL,
		    lead_replied = false,
		    updated_at = now()
		WHERE lead_id = $1
	`, leadID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "resume automation failed", err).WithOp(opResume)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "automation not found").WithOp(opResume)
	}
	return nil
}

// MarkStageSent advances the step cursor after a successful send. The guard
// on current_stage makes the advance a compare-and-swap: if a concurrent
// worker already advanced (or a pause landed in between) nothing is written
// and false is returned.
func (r *Repository) MarkStageSent(ctx context.Context, leadID uuid.UUID, fromStage int, sentAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET current_stage = current_stage + 1,
		    last_sent_at = $3,
		    updated_at = now()
		WHERE lead_id = $1 AND is_active AND current_stage = $2
	`, leadID, fromStage, sentAt)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "mark stage sent failed", err).WithOp(opMarkStageSent)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete marks a sequence as finished. Completed automations are paused
// with the canonical completion reason and never advance again; only a stage
// change re-seeds them.
func (r *Repository) Complete(ctx context.Context, leadID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET is_active = false,
		    paused_reason = $2,
		    paused_at = coalesce(paused_at, $3),
		    updated_at = now()
		WHERE lead_id = $1
	`, leadID, domain.PausedReasonCompleted, at)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "complete automation failed", err).WithOp(opComplete)
	}
	return nil
}

// SetLeadReplied records that the lead answered. The flag is informational
// alongside the pause; it survives until a resume or a re-seed clears it.
func (r *Repository) SetLeadReplied(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET lead_replied = true, updated_at = now()
		WHERE lead_id = $1
	`, leadID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "set lead replied failed", err).WithOp(opSetReplied)
	}
	return nil
}

// Deactivate stops an automation permanently when its lead is archived.
func (r *Repository) Deactivate(ctx context.Context, leadID uuid.UUID, reason string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_automations
		SET is_active = false,
		    paused_reason = coalesce(paused_reason, $2),
		    paused_at = coalesce(paused_at, $3),
		    updated_at = now()
		WHERE lead_id = $1
	`, leadID, reason, at)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "deactivate automation failed", err).WithOp(opDeactivate)
	}
	return nil
}

// ListDue returns active automations whose leads can still receive drip
// email: not archived, not in a terminal stage, with a deliverable address.
// Delay eligibility is evaluated in the service against the sequence policy;
// the query only narrows to plausible candidates.
func (r *Repository) ListDue(ctx context.Context, limit int) ([]DueLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.lead_id, l.email, l.name, l.stage,
		       a.current_stage, a.lead_replied, a.seeded_at, a.last_sent_at
		FROM email_automations a
		JOIN leads l ON l.id = a.lead_id
		WHERE a.is_active
		  AND l.is_active
		  AND NOT l.is_archived
		  AND l.stage NOT IN ('Won', 'Lost')
		  AND l.email <> ''
		ORDER BY a.updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list due automations failed", err).WithOp(opListDue)
	}
	defer rows.Close()

	items := make([]DueLead, 0)
	for rows.Next() {
		var (
			d           DueLead
			stage       int
			leadReplied bool
		)
		if err := rows.Scan(
			&d.LeadID, &d.Email, &d.Name, &d.Stage,
			&stage, &leadReplied, &d.SeededAt, &d.LastSentAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan due automation failed", err).WithOp(opListDue)
		}
		d.State = domain.FromRecord(true, stage, "", nil, leadReplied)
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate due automations failed", err).WithOp(opListDue)
	}
	return items, nil
}
