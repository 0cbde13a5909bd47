package email

import (
	"strings"
	"testing"
)

func TestRenderAllDripTemplates(t *testing.T) {
	templates := []string{
		"drip_introduction.html",
		"drip_follow_up.html",
		"drip_check_in.html",
		"drip_final_touch.html",
		"drip_next_steps.html",
		"drip_resources.html",
		"drip_proposal_follow_up.html",
		"drip_proposal_reminder.html",
		"drip_negotiation_check_in.html",
	}

	for _, name := range templates {
		t.Run(name, func(t *testing.T) {
			html, err := renderEmailTemplate(name, dripEmailData{
				baseEmailData: baseEmailData{Title: "Hello"},
				LeadName:      "Jordan",
			})
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if !strings.Contains(html, "Jordan") {
				t.Fatalf("rendered %s does not address the lead", name)
			}
		})
	}
}

func TestRenderAgingDigestTemplate(t *testing.T) {
	html, err := renderEmailTemplate("aging_digest.html", agingDigestEmailData{
		baseEmailData: baseEmailData{Title: "2 leads need your attention"},
		AdminName:     "Sam",
		TotalLeads:    2,
		Groups: []DigestGroup{
			{Stage: "Lead", Leads: []DigestLead{
				{Name: "Alpha", Email: "alpha@example.com", AgingDays: 5, LeadURL: "https://crm.example.com/leads/1"},
			}},
			{Stage: "Qualified", Leads: []DigestLead{
				{Name: "Beta", Email: "beta@example.com", AgingDays: 3, LeadURL: "https://crm.example.com/leads/2"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"Alpha", "Beta", "5d without contact", "https://crm.example.com/leads/1"} {
		if !strings.Contains(html, want) {
			t.Fatalf("digest missing %q", want)
		}
	}
}

func TestRenderQuoteTemplate(t *testing.T) {
	html, err := renderEmailTemplate("quote_sent.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your proposal Q-2026-0001 is ready",
			CTALabel: "View proposal",
			CTAURL:   "https://crm.example.com/quotes/abc",
		},
		LeadName:    "Jordan",
		QuoteNumber: "Q-2026-0001",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "Q-2026-0001") || !strings.Contains(html, "https://crm.example.com/quotes/abc") {
		t.Fatal("quote email missing number or link")
	}
}
