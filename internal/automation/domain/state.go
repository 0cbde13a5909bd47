// Package domain models the drip automation's lifecycle as an explicit
// tagged state instead of loose boolean+string columns, so "inactive with no
// reason" is unrepresentable.
package domain

import (
	"errors"
	"time"
)

// Status is the automation lifecycle tag.
type Status string

const (
	// StatusActive means the sequence is running and eligible for advancement.
	StatusActive Status = "active"
	// StatusPaused means sends are suspended until an explicit resume or re-seed.
	StatusPaused Status = "paused"
	// StatusCompleted means the sequence ran to its final step. Terminal for
	// automatic processing; only a pipeline stage change re-seeds it.
	StatusCompleted Status = "completed"
)

// PausedReasonCompleted is the reason recorded when a sequence finishes.
const PausedReasonCompleted = "sequence completed"

// ErrReasonRequired is returned when a pause transition carries no reason.
var ErrReasonRequired = errors.New("pause reason is required")

// State is the automation's tagged lifecycle state.
type State struct {
	Status       Status
	Stage        int
	PausedReason string
	PausedAt     *time.Time
	LeadReplied  bool
}

// Active constructs a running state at the given sequence step.
func Active(stage int) State {
	return State{Status: StatusActive, Stage: stage}
}

// Paused constructs a suspended state. The reason is mandatory: an automation
// is never silently paused.
func Paused(stage int, reason string, since time.Time) (State, error) {
	if reason == "" {
		return State{}, ErrReasonRequired
	}
	return State{Status: StatusPaused, Stage: stage, PausedReason: reason, PausedAt: &since}, nil
}

// Completed constructs the end-of-sequence state.
func Completed(stage int, since time.Time) State {
	return State{Status: StatusCompleted, Stage: stage, PausedReason: PausedReasonCompleted, PausedAt: &since}
}

// FromRecord reconstructs the tagged state from persisted columns. A stored
// row with is_active=false and no reason predates the reason invariant; it is
// normalized to a paused state with an explicit placeholder reason.
func FromRecord(isActive bool, stage int, pausedReason string, pausedAt *time.Time, leadReplied bool) State {
	state := State{Stage: stage, LeadReplied: leadReplied}
	switch {
	case isActive:
		state.Status = StatusActive
	case pausedReason == PausedReasonCompleted:
		state.Status = StatusCompleted
		state.PausedReason = pausedReason
		state.PausedAt = pausedAt
	default:
		state.Status = StatusPaused
		state.PausedReason = pausedReason
		if state.PausedReason == "" {
			state.PausedReason = "paused (reason not recorded)"
		}
		state.PausedAt = pausedAt
	}
	return state
}

// CanAdvance reports whether the stage-advance transition may run.
// Paused and completed automations never advance on their own.
func (s State) CanAdvance() bool {
	return s.Status == StatusActive
}
