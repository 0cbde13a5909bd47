package alerting

import (
	"context"
	"time"

	"crm_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const opListRecipients = "alerting.repository.list_recipients"

// Admin is an alert recipient.
type Admin struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// AdminRepository reads alert recipients from admin_users.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates the admin repository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// ListRecipients returns every active admin with alerts enabled.
func (r *AdminRepository) ListRecipients(ctx context.Context) ([]Admin, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, created_at
		FROM admin_users
		WHERE is_active AND alerts_enabled
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list alert recipients failed", err).WithOp(opListRecipients)
	}
	defer rows.Close()

	admins := make([]Admin, 0)
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan alert recipient failed", err).WithOp(opListRecipients)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate alert recipients failed", err).WithOp(opListRecipients)
	}
	return admins, nil
}
