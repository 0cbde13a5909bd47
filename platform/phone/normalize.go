// Package phone normalizes phone numbers to E.164 for consistent storage
// and lookup. This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is applied when a number carries no country prefix.
const DefaultRegion = "US"

// Normalize parses the input and returns it formatted as E.164.
// Invalid or empty input returns the trimmed original so a bad phone number
// never blocks lead creation; callers that need strict validation should
// check the second return value.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return trimmed, false
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}

	return phonenumbers.Format(number, phonenumbers.E164), true
}
