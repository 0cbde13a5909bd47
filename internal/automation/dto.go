package automation

import (
	"time"

	"github.com/google/uuid"
)

// PauseAutomationRequest is the body for an operator pause.
type PauseAutomationRequest struct {
	Reason string `json:"reason" validate:"required,max=200"`
}

// AutomationResponse is the API representation of a lead's automation state.
type AutomationResponse struct {
	LeadID       uuid.UUID  `json:"leadId"`
	Status       string     `json:"status"`
	CurrentStep  int        `json:"currentStep"`
	PausedReason string     `json:"pausedReason,omitempty"`
	PausedAt     *time.Time `json:"pausedAt,omitempty"`
	LeadReplied  bool       `json:"leadReplied"`
	SeededAt     time.Time  `json:"seededAt"`
	LastSentAt   *time.Time `json:"lastSentAt,omitempty"`
}

// AdvanceResponse reports a manually triggered advance pass.
type AdvanceResponse struct {
	Scanned   int `json:"scanned"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func toAutomationResponse(rec Record) AutomationResponse {
	return AutomationResponse{
		LeadID:       rec.LeadID,
		Status:       string(rec.State.Status),
		CurrentStep:  rec.State.Stage,
		PausedReason: rec.State.PausedReason,
		PausedAt:     rec.State.PausedAt,
		LeadReplied:  rec.State.LeadReplied,
		SeededAt:     rec.SeededAt,
		LastSentAt:   rec.LastSentAt,
	}
}
