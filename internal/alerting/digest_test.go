package alerting

import (
	"strings"
	"testing"

	"crm_portal_backend/internal/leads/domain"
	"crm_portal_backend/internal/leads/repository"
)

func TestBuildDigestGroupsInFunnelOrder(t *testing.T) {
	leads := []repository.Lead{
		staleLead("neg", domain.StageNegotiations, 8),
		staleLead("fresh", domain.StageLead, 3),
		staleLead("qual", domain.StageQualified, 5),
		staleLead("fresh2", domain.StageLead, 6),
	}

	digest := BuildDigest(leads, "https://crm.example.com")

	if digest.TotalLeads != 4 {
		t.Fatalf("TotalLeads = %d, want 4", digest.TotalLeads)
	}
	wantStages := []string{domain.StageLead, domain.StageQualified, domain.StageNegotiations}
	if len(digest.Groups) != len(wantStages) {
		t.Fatalf("expected %d groups, got %d", len(wantStages), len(digest.Groups))
	}
	for i, group := range digest.Groups {
		if group.Stage != wantStages[i] {
			t.Fatalf("group %d stage = %q, want %q", i, group.Stage, wantStages[i])
		}
	}
	if len(digest.Groups[0].Leads) != 2 {
		t.Fatalf("expected 2 Lead-stage entries, got %d", len(digest.Groups[0].Leads))
	}
}

func TestBuildDigestKeepsUnknownStages(t *testing.T) {
	leads := []repository.Lead{
		staleLead("known", domain.StageLead, 3),
		staleLead("mystery", "Imported", 9),
	}

	digest := BuildDigest(leads, "https://crm.example.com")
	if len(digest.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(digest.Groups))
	}
	last := digest.Groups[len(digest.Groups)-1]
	if last.Stage != "Imported" {
		t.Fatalf("unknown stage must be appended last, got %q", last.Stage)
	}
}

func TestBuildDigestLinksLeads(t *testing.T) {
	lead := staleLead("alpha", domain.StageLead, 4)
	digest := BuildDigest([]repository.Lead{lead}, "https://crm.example.com")

	url := digest.Groups[0].Leads[0].LeadURL
	if !strings.HasPrefix(url, "https://crm.example.com/leads/") || !strings.HasSuffix(url, lead.ID.String()) {
		t.Fatalf("unexpected lead URL %q", url)
	}
}
