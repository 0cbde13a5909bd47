package domain

const (
	StageLead         = "Lead"
	StageQualified    = "Qualified"
	StageProposalSent = "Proposal Sent"
	StageNegotiations = "Negotiations"
	StageWon          = "Won"
	StageLost         = "Lost"
)

// PipelineStages lists the stages in funnel order.
var PipelineStages = []string{
	StageLead,
	StageQualified,
	StageProposalSent,
	StageNegotiations,
	StageWon,
	StageLost,
}

var knownStages = map[string]struct{}{
	StageLead:         {},
	StageQualified:    {},
	StageProposalSent: {},
	StageNegotiations: {},
	StageWon:          {},
	StageLost:         {},
}

// IsKnownStage reports whether stage is a valid pipeline stage.
func IsKnownStage(stage string) bool {
	_, ok := knownStages[stage]
	return ok
}

// IsTerminalStage reports whether stage is Won or Lost. Terminal leads are
// permanently excluded from aging alerts and automation advancement.
func IsTerminalStage(stage string) bool {
	return stage == StageWon || stage == StageLost
}

// Budget tiers for the lead's economic classification.
const (
	BudgetLow     = "low"
	BudgetMedium  = "medium"
	BudgetHigh    = "high"
	BudgetPremium = "premium"
)

var knownBudgets = map[string]struct{}{
	BudgetLow:     {},
	BudgetMedium:  {},
	BudgetHigh:    {},
	BudgetPremium: {},
}

// IsKnownBudget reports whether budget is a valid tier. Empty is allowed.
func IsKnownBudget(budget string) bool {
	if budget == "" {
		return true
	}
	_, ok := knownBudgets[budget]
	return ok
}
