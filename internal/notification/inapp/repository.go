// Package inapp persists and serves per-admin in-app notifications.
package inapp

import (
	"context"
	"fmt"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"
	opDelete      = "notification.inapp.repository.delete"

	errAdminIDRequired = "adminId is required"
)

// Priority levels for in-app notifications.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Notification struct {
	ID            uuid.UUID  `json:"id"`
	AdminID       uuid.UUID  `json:"adminId"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	RelatedLeadID *uuid.UUID `json:"relatedLeadId,omitempty"`
	Priority      string     `json:"priority"`
	IsRead        bool       `json:"isRead"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type CreateParams struct {
	AdminID       uuid.UUID
	Type          string
	Title         string
	Message       string
	RelatedLeadID *uuid.UUID
	Priority      string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.AdminID == uuid.Nil {
		return Notification{}, apperr.Validation(errAdminIDRequired).WithOp(opCreate)
	}
	if p.Title == "" || p.Message == "" {
		return Notification{}, apperr.Validation("title and message are required").WithOp(opCreate)
	}

	priority := p.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO in_app_notifications (admin_id, type, title, message, related_lead_id, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, admin_id, type, title, message, related_lead_id, priority, is_read, created_at
	`, p.AdminID, p.Type, p.Title, p.Message, p.RelatedLeadID, priority).Scan(
		&n.ID, &n.AdminID, &n.Type, &n.Title, &n.Message, &n.RelatedLeadID, &n.Priority, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}

	return n, nil
}

func (r *Repository) List(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if adminID == uuid.Nil {
		return nil, 0, apperr.Validation(errAdminIDRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM in_app_notifications WHERE admin_id = $1`, adminID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, admin_id, type, title, message, related_lead_id, priority, is_read, created_at
		FROM in_app_notifications
		WHERE admin_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, adminID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if scanErr := rows.Scan(&n.ID, &n.AdminID, &n.Type, &n.Title, &n.Message, &n.RelatedLeadID, &n.Priority, &n.IsRead, &n.CreatedAt); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, adminID uuid.UUID) (int, error) {
	if adminID == uuid.Nil {
		return 0, apperr.Validation(errAdminIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE admin_id = $1 AND is_read = FALSE
	`, adminID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, adminID, notificationID uuid.UUID) error {
	if adminID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("adminId and notificationId are required").WithOp(opMarkRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND admin_id = $2
	`, notificationID, adminID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return apperr.Validation(errAdminIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = now()
		WHERE admin_id = $1 AND is_read = FALSE
	`, adminID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, adminID, notificationID uuid.UUID) error {
	if adminID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("adminId and notificationId are required").WithOp(opDelete)
	}

	_, err := r.pool.Exec(ctx, `
		DELETE FROM in_app_notifications
		WHERE id = $1 AND admin_id = $2
	`, notificationID, adminID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete notification failed: %v", err)).WithOp(opDelete)
	}

	return nil
}
