// Package webhook ingests delivery and engagement events from the email
// provider and applies them to the matching lead.
package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EventKind is the closed set of provider event types. Anything else is
// rejected at the door.
type EventKind string

const (
	KindOpened     EventKind = "opened"
	KindClicked    EventKind = "clicked"
	KindBounced    EventKind = "bounced"
	KindComplained EventKind = "complained"
	KindFailed     EventKind = "failed"
)

// ParseEventKind validates a raw event string against the closed set.
func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindOpened, KindClicked, KindBounced, KindComplained, KindFailed:
		return kind, nil
	}
	return "", fmt.Errorf("unknown event kind %q", raw)
}

// EventRequest is the inbound webhook payload.
type EventRequest struct {
	Type string    `json:"type" validate:"required"`
	Data EventData `json:"data" validate:"required"`
}

// EventData carries the event details.
type EventData struct {
	Email     string    `json:"email" validate:"required,email"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
	Reason    string    `json:"reason,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// DedupeID derives a stable identity for an event so provider retries are
// recognized. The message ID carries most of the entropy; email and kind
// cover providers that reuse message IDs across recipients.
func (r EventRequest) DedupeID(kind EventKind) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d",
		kind, strings.ToLower(r.Data.Email), r.Data.MessageID, r.Data.CreatedAt.Unix()))
	return hex.EncodeToString(h[:])
}

// IngestStatus reports what the handler did with an event.
type IngestStatus string

const (
	// StatusProcessed means the event was applied to a tracked lead.
	StatusProcessed IngestStatus = "processed"
	// StatusDuplicate means the event was seen before and skipped.
	StatusDuplicate IngestStatus = "duplicate"
	// StatusUntracked means no active lead matches the address. Accepted
	// and dropped: the provider must not retry these.
	StatusUntracked IngestStatus = "untracked"
	// StatusInactive means the lead exists but has no running automation, so
	// the event carries no signal worth recording. Accepted and dropped.
	StatusInactive IngestStatus = "automation_inactive"
)

// IngestResponse is returned to the provider.
type IngestResponse struct {
	Status IngestStatus `json:"status"`
}
