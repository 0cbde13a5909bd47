package domain

// Activity type constants identify the nature of a lead activity log entry.
const (
	ActivityTypeNote       = "note"
	ActivityTypeCall       = "call"
	ActivityTypeEmail      = "email"
	ActivityTypeMeeting    = "meeting"
	ActivityTypeEngagement = "engagement"
	ActivityTypeStage      = "stage_change"
)

// Activity status values.
const (
	ActivityStatusPending = "pending"
	ActivityStatusDone    = "done"
)

// Actor name constants for activities written by system processes.
// Human actor names come from the admin record (email address).
const (
	ActorAutomationEngine = "Automation Engine"
	ActorAgingSweep       = "Aging Sweep"
	ActorWebhookIngest    = "Webhook Ingest"
)
