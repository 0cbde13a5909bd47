package inapp

import (
	"context"

	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Notification type identifiers used by the alerting listeners.
const (
	TypeAgingAlert = "aging_alert"
	TypeSendFailed = "automation_send_failed"
	TypePaused     = "automation_paused"
)

type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type SendParams struct {
	AdminID       uuid.UUID
	Type          string
	Title         string
	Message       string
	RelatedLeadID *uuid.UUID
	Priority      string
}

// Send persists one notification for one admin.
func (s *Service) Send(ctx context.Context, p SendParams) error {
	_, err := s.repo.Create(ctx, CreateParams{
		AdminID:       p.AdminID,
		Type:          p.Type,
		Title:         p.Title,
		Message:       p.Message,
		RelatedLeadID: p.RelatedLeadID,
		Priority:      p.Priority,
	})
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "adminId", p.AdminID)
		return err
	}
	return nil
}

// Broadcast sends the same notification to every listed admin. A failure for
// one admin does not block the others.
func (s *Service) Broadcast(ctx context.Context, adminIDs []uuid.UUID, p SendParams) {
	for _, adminID := range adminIDs {
		p.AdminID = adminID
		_ = s.Send(ctx, p)
	}
}

func (s *Service) List(ctx context.Context, adminID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, adminID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, adminID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, adminID)
}

func (s *Service) MarkRead(ctx context.Context, adminID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, adminID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, adminID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, adminID)
}

func (s *Service) Delete(ctx context.Context, adminID, id uuid.UUID) error {
	return s.repo.Delete(ctx, adminID, id)
}
