package automation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crm_portal_backend/internal/leads/domain"
)

func TestDefaultSequencesCoverNonTerminalStages(t *testing.T) {
	set := DefaultSequences()

	for _, stage := range domain.PipelineStages {
		sequence := set.ForStage(stage)
		if domain.IsTerminalStage(stage) {
			if len(sequence) != 0 {
				t.Fatalf("terminal stage %q must have no sequence", stage)
			}
			continue
		}
		if len(sequence) == 0 {
			t.Fatalf("stage %q has no default sequence", stage)
		}
	}

	lead := set.ForStage(domain.StageLead)
	if len(lead) != 4 {
		t.Fatalf("expected 4 lead steps, got %d", len(lead))
	}
	wantDelays := []time.Duration{0, 3 * 24 * time.Hour, 4 * 24 * time.Hour, 7 * 24 * time.Hour}
	for i, step := range lead {
		if step.Delay != wantDelays[i] {
			t.Fatalf("lead step %d delay = %v, want %v", i, step.Delay, wantDelays[i])
		}
		if step.Name == "" || step.Subject == "" || step.Template == "" {
			t.Fatalf("lead step %d is incomplete: %+v", i, step)
		}
	}
}

func writeSequenceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequences.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSequencesOverridesFromYAML(t *testing.T) {
	path := writeSequenceFile(t, `
sequences:
  Lead:
    - name: hello
      subject: Hello there
      template: drip_introduction.html
      delay: 0s
    - name: nudge
      subject: Quick nudge
      template: drip_follow_up.html
      delay: 48h
`)

	set, err := LoadSequences(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sequence := set.ForStage("Lead")
	if len(sequence) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(sequence))
	}
	if sequence[1].Delay != 48*time.Hour {
		t.Fatalf("step delay = %v, want 48h", sequence[1].Delay)
	}
}

func TestLoadSequencesEmptyPathReturnsDefaults(t *testing.T) {
	set, err := LoadSequences("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.ForStage(domain.StageLead)) == 0 {
		t.Fatal("expected defaults for empty path")
	}
}

func TestLoadSequencesRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown stage",
			content: `
sequences:
  Prospect:
    - {name: a, subject: b, template: c.html, delay: 0s}
`,
			wantErr: "unknown pipeline stage",
		},
		{
			name: "terminal stage",
			content: `
sequences:
  Won:
    - {name: a, subject: b, template: c.html, delay: 0s}
`,
			wantErr: "terminal stage",
		},
		{
			name: "negative delay",
			content: `
sequences:
  Lead:
    - {name: a, subject: b, template: c.html, delay: -1h}
`,
			wantErr: "must not be negative",
		},
		{
			name: "missing subject",
			content: `
sequences:
  Lead:
    - {name: a, template: c.html, delay: 0s}
`,
			wantErr: "missing name, subject, or template",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSequenceFile(t, tc.content)
			if _, err := LoadSequences(path); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
