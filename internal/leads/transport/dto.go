// Package transport defines the request/response DTOs for the leads module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest is the payload for creating a lead.
type CreateLeadRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=200"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"max=40"`
	Stage        string   `json:"stage" validate:"omitempty,max=40"`
	Source       string   `json:"source" validate:"max=100"`
	ProjectTypes []string `json:"projectTypes" validate:"max=20,dive,max=100"`
	Value        float64  `json:"value" validate:"gte=0"`
	Budget       string   `json:"budget" validate:"omitempty,oneof=low medium high premium"`
}

// ChangeStageRequest moves a lead to a different pipeline stage.
type ChangeStageRequest struct {
	Stage   string `json:"stage" validate:"required,max=40"`
	Comment string `json:"comment" validate:"max=400"`
}

// UpdateLeadRequest applies a partial update to tracked lead fields.
// Nil pointers mean "leave unchanged"; each changed field yields one
// version-history entry.
type UpdateLeadRequest struct {
	Name    *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Phone   *string  `json:"phone" validate:"omitempty,max=40"`
	Source  *string  `json:"source" validate:"omitempty,max=100"`
	Value   *float64 `json:"value" validate:"omitempty,gte=0"`
	Budget  *string  `json:"budget" validate:"omitempty,oneof=low medium high premium"`
	Comment string   `json:"comment" validate:"max=400"`
}

// AddActivityRequest appends an entry to the lead's activity log.
type AddActivityRequest struct {
	Type        string     `json:"type" validate:"required,oneof=note call email meeting engagement"`
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending done"`
	ContactMade bool       `json:"contactMade"`
	DueDate     *time.Time `json:"dueDate"`
	OccurredAt  *time.Time `json:"occurredAt"`
}

// LeadResponse is the external representation of a lead.
type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Stage           string     `json:"stage"`
	Source          string     `json:"source,omitempty"`
	ProjectTypes    []string   `json:"projectTypes"`
	Value           float64    `json:"value"`
	Budget          string     `json:"budget,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastContactDate *time.Time `json:"lastContactDate,omitempty"`
	AgingDays       int        `json:"agingDays"`
	AgingPaused     bool       `json:"agingPaused"`
	IsArchived      bool       `json:"isArchived"`
}

// ActivityResponse is the external representation of an activity log entry.
type ActivityResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Status      string         `json:"status"`
	ContactMade bool           `json:"contactMade"`
	Automated   bool           `json:"automated"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
	CreatedBy   string         `json:"createdBy"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// VersionEntryResponse is the external representation of an audit entry.
type VersionEntryResponse struct {
	Field     string    `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	ChangedBy string    `json:"changedBy"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
