// Package alerting turns the aging sweep's output into admin-facing alerts:
// one digest email per admin plus an in-app notification, grouped by
// pipeline stage.
package alerting

import (
	"fmt"

	"crm_portal_backend/internal/email"
	"crm_portal_backend/internal/leads/domain"
	"crm_portal_backend/internal/leads/repository"
)

// BuildDigest groups stale leads by pipeline stage in funnel order. Leads in
// unknown stages (should not happen) are appended at the end so nothing is
// silently dropped from an alert.
func BuildDigest(leads []repository.Lead, appBaseURL string) email.AgingDigest {
	byStage := make(map[string][]email.DigestLead, len(domain.PipelineStages))
	var unknownStages []string
	for _, lead := range leads {
		if _, seen := byStage[lead.Stage]; !seen && !domain.IsKnownStage(lead.Stage) {
			unknownStages = append(unknownStages, lead.Stage)
		}
		byStage[lead.Stage] = append(byStage[lead.Stage], email.DigestLead{
			Name:      lead.Name,
			Email:     lead.Email,
			AgingDays: lead.AgingDays,
			LeadURL:   fmt.Sprintf("%s/leads/%s", appBaseURL, lead.ID),
		})
	}

	digest := email.AgingDigest{TotalLeads: len(leads)}
	for _, stage := range append(domain.PipelineStages, unknownStages...) {
		group, ok := byStage[stage]
		if !ok {
			continue
		}
		digest.Groups = append(digest.Groups, email.DigestGroup{
			Stage: stage,
			Leads: group,
		})
	}
	return digest
}
