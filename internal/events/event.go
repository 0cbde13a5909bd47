// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"crm_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created. The automation module
// subscribes to seed the lead's drip sequence.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Stage  string    `json:"stage"`
	Email  string    `json:"email"`
	Source string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadStageChanged is published when a lead moves to a different pipeline stage.
// The automation module subscribes to re-seed the drip sequence.
type LeadStageChanged struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	PreviousStage string    `json:"previousStage"`
	NewStage      string    `json:"newStage"`
	ChangedBy     string    `json:"changedBy"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// LeadArchived is published when a lead is archived. The automation module
// subscribes to deactivate the lead's drip sequence.
type LeadArchived struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	ArchivedBy string    `json:"archivedBy"`
}

func (e LeadArchived) EventName() string { return "leads.archived" }

// =============================================================================
// Automation Domain Events
// =============================================================================

// AutomationPaused is published when a drip automation transitions to paused,
// either by engagement (bounce, complaint) or operator action.
type AutomationPaused struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e AutomationPaused) EventName() string { return "automation.paused" }

// AutomationSendFailed is published when a drip stage email could not be
// delivered. The alerting module subscribes so failures surface to admins
// instead of being silently dropped.
type AutomationSendFailed struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	LeadEmail string    `json:"leadEmail"`
	StageName string    `json:"stageName"`
	Reason    string    `json:"reason"`
}

func (e AutomationSendFailed) EventName() string { return "automation.send.failed" }

// EngagementReceived is published after an inbound delivery/engagement
// webhook event has been applied to a lead.
type EngagementReceived struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	EventKind string    `json:"eventKind"`
	Email     string    `json:"email"`
	EventTime time.Time `json:"eventTime"`
}

func (e EngagementReceived) EventName() string { return "automation.engagement.received" }
