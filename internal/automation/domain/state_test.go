package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPausedRequiresReason(t *testing.T) {
	if _, err := Paused(2, "", time.Now()); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	state, err := Paused(2, "Lead replied", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != StatusPaused || state.PausedReason != "Lead replied" || state.PausedAt == nil {
		t.Fatalf("unexpected paused state: %+v", state)
	}
}

func TestFromRecordReconstructsStatus(t *testing.T) {
	now := time.Now()

	active := FromRecord(true, 1, "", nil, false)
	if active.Status != StatusActive || !active.CanAdvance() {
		t.Fatalf("expected advanceable active state, got %+v", active)
	}

	completed := FromRecord(false, 3, PausedReasonCompleted, &now, false)
	if completed.Status != StatusCompleted || completed.CanAdvance() {
		t.Fatalf("expected completed state, got %+v", completed)
	}

	paused := FromRecord(false, 1, "Email bounced: mailbox full", &now, false)
	if paused.Status != StatusPaused || paused.CanAdvance() {
		t.Fatalf("expected paused state, got %+v", paused)
	}
}

func TestFromRecordNormalizesMissingPauseReason(t *testing.T) {
	state := FromRecord(false, 0, "", nil, false)
	if state.Status != StatusPaused {
		t.Fatalf("expected paused, got %q", state.Status)
	}
	if state.PausedReason == "" {
		t.Fatal("expected a placeholder pause reason for legacy rows")
	}
}
