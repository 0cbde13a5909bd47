// Package aging recomputes each active lead's days-since-last-contact and
// produces the set of leads that have gone quiet long enough to alert on.
package aging

import (
	"math"
	"time"
)

// AgingDays returns the whole number of days between effectiveLastContact and
// now, rounded up. A contact earlier today yields 1; a contact in the future
// (clock skew, webhook timestamps ahead of the server) clamps to 0.
func AgingDays(now, effectiveLastContact time.Time) int {
	elapsed := now.Sub(effectiveLastContact)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(elapsed.Hours() / 24))
}

// EffectiveLastContact picks the reference point for aging: the latest
// confirmed contact when one exists, otherwise the lead's creation time.
func EffectiveLastContact(createdAt time.Time, lastContact *time.Time) time.Time {
	if lastContact != nil && lastContact.After(createdAt) {
		return *lastContact
	}
	return createdAt
}
