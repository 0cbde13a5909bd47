package domain

import "testing"

func TestPipelineStagesAreAllKnown(t *testing.T) {
	for _, stage := range PipelineStages {
		if !IsKnownStage(stage) {
			t.Fatalf("pipeline stage %q not recognized as known", stage)
		}
	}
	if IsKnownStage("Prospect") {
		t.Fatal("unexpected stage accepted")
	}
}

func TestTerminalStages(t *testing.T) {
	for _, stage := range []string{StageWon, StageLost} {
		if !IsTerminalStage(stage) {
			t.Fatalf("expected %q to be terminal", stage)
		}
	}
	for _, stage := range []string{StageLead, StageQualified, StageProposalSent, StageNegotiations} {
		if IsTerminalStage(stage) {
			t.Fatalf("expected %q to be non-terminal", stage)
		}
	}
}

func TestIsKnownBudgetAllowsEmpty(t *testing.T) {
	if !IsKnownBudget("") {
		t.Fatal("empty budget should be allowed")
	}
	if !IsKnownBudget(BudgetPremium) {
		t.Fatal("premium budget should be allowed")
	}
	if IsKnownBudget("enormous") {
		t.Fatal("unknown budget accepted")
	}
}
