// Package events names the domain events the modules exchange. The bus
// implementation lives in platform/events; this package re-exports it so
// modules depend on one import for both the bus and the event types.
package events

import (
	platformevents "crm_portal_backend/platform/events"
	"crm_portal_backend/platform/logger"
)

// InMemoryBus aliases the platform bus implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus builds the process-local event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
