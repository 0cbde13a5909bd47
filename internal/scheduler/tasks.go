// Package scheduler runs the periodic background work over asynq: the daily
// aging sweep with alert dispatch, and the drip advance passes.
package scheduler

import (
	"github.com/hibiken/asynq"
)

const TaskAgingSweep = "leads.aging.sweep"

const TaskAutomationAdvance = "automation.advance"

// Both tasks are full-table passes and carry no payload.

func NewAgingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAgingSweep, nil)
}

func NewAutomationAdvanceTask() *asynq.Task {
	return asynq.NewTask(TaskAutomationAdvance, nil)
}
