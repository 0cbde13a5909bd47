package aging

import (
	"testing"
	"time"
)

func TestAgingDaysRoundsUpPartialDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		contact time.Time
		want    int
	}{
		{"same instant", now, 0},
		{"future contact clamps to zero", now.Add(2 * time.Hour), 0},
		{"one hour ago counts as one day", now.Add(-time.Hour), 1},
		{"exactly one day", now.Add(-24 * time.Hour), 1},
		{"one day and a minute rounds up", now.Add(-24*time.Hour - time.Minute), 2},
		{"ten days", now.Add(-10 * 24 * time.Hour), 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AgingDays(now, tc.contact); got != tc.want {
				t.Fatalf("AgingDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEffectiveLastContactFallsBackToCreation(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := EffectiveLastContact(created, nil); !got.Equal(created) {
		t.Fatalf("expected creation time for never-contacted lead, got %v", got)
	}

	before := created.Add(-time.Hour)
	if got := EffectiveLastContact(created, &before); !got.Equal(created) {
		t.Fatalf("contact before creation should not win, got %v", got)
	}

	after := created.Add(48 * time.Hour)
	if got := EffectiveLastContact(created, &after); !got.Equal(after) {
		t.Fatalf("expected later contact to win, got %v", got)
	}
}
