package automation

import (
	"fmt"
	"os"
	"time"

	"crm_portal_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// Step is one email in a drip sequence. Delay is measured from the previous
// step's send (or from seeding, for the first step).
type Step struct {
	Name     string        `yaml:"name"`
	Subject  string        `yaml:"subject"`
	Template string        `yaml:"template"`
	Delay    time.Duration `yaml:"delay"`
}

// Sequence is the ordered list of steps for one pipeline stage.
type Sequence []Step

// SequenceSet maps pipeline stages to their drip sequences. Sequences are
// policy data, not core logic: deployments override the defaults with a YAML
// file.
type SequenceSet map[string]Sequence

// ForStage returns the sequence configured for a pipeline stage. Terminal
// stages have no sequence.
func (s SequenceSet) ForStage(stage string) Sequence {
	return s[stage]
}

// DefaultSequences returns the compiled-in drip policy used when no YAML
// override is configured.
func DefaultSequences() SequenceSet {
	day := 24 * time.Hour
	return SequenceSet{
		domain.StageLead: {
			{Name: "introduction", Subject: "Thanks for reaching out", Template: "drip_introduction.html", Delay: 0},
			{Name: "follow-up", Subject: "Following up on your project", Template: "drip_follow_up.html", Delay: 3 * day},
			{Name: "check-in", Subject: "Still thinking it over?", Template: "drip_check_in.html", Delay: 4 * day},
			{Name: "final-touch", Subject: "Last note from us", Template: "drip_final_touch.html", Delay: 7 * day},
		},
		domain.StageQualified: {
			{Name: "next-steps", Subject: "Next steps for your project", Template: "drip_next_steps.html", Delay: 0},
			{Name: "resources", Subject: "A few ideas for your project", Template: "drip_resources.html", Delay: 3 * day},
			{Name: "check-in", Subject: "Checking in", Template: "drip_check_in.html", Delay: 7 * day},
		},
		domain.StageProposalSent: {
			{Name: "proposal-follow-up", Subject: "Any questions about the proposal?", Template: "drip_proposal_follow_up.html", Delay: 2 * day},
			{Name: "proposal-reminder", Subject: "Your proposal is waiting", Template: "drip_proposal_reminder.html", Delay: 4 * day},
		},
		domain.StageNegotiations: {
			{Name: "negotiation-check-in", Subject: "Keeping things moving", Template: "drip_negotiation_check_in.html", Delay: 3 * day},
		},
	}
}

// yamlSequenceFile is the on-disk shape of a sequence override file.
type yamlSequenceFile struct {
	Sequences map[string][]yamlStep `yaml:"sequences"`
}

type yamlStep struct {
	Name     string `yaml:"name"`
	Subject  string `yaml:"subject"`
	Template string `yaml:"template"`
	Delay    string `yaml:"delay"`
}

// LoadSequences reads the drip policy from a YAML file. An empty path returns
// the defaults. Unknown pipeline stages and terminal stages are rejected so a
// typo in the policy file fails at startup, not silently at send time.
func LoadSequences(path string) (SequenceSet, error) {
	if path == "" {
		return DefaultSequences(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence config: %w", err)
	}

	var file yamlSequenceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sequence config: %w", err)
	}

	set := make(SequenceSet, len(file.Sequences))
	for stage, steps := range file.Sequences {
		if !domain.IsKnownStage(stage) {
			return nil, fmt.Errorf("sequence config: unknown pipeline stage %q", stage)
		}
		if domain.IsTerminalStage(stage) {
			return nil, fmt.Errorf("sequence config: terminal stage %q cannot have a sequence", stage)
		}

		sequence := make(Sequence, 0, len(steps))
		for i, step := range steps {
			if step.Name == "" || step.Subject == "" || step.Template == "" {
				return nil, fmt.Errorf("sequence config: stage %q step %d is missing name, subject, or template", stage, i)
			}
			delay, err := time.ParseDuration(step.Delay)
			if err != nil {
				return nil, fmt.Errorf("sequence config: stage %q step %d delay: %w", stage, i, err)
			}
			if delay < 0 {
				return nil, fmt.Errorf("sequence config: stage %q step %d delay must not be negative", stage, i)
			}
			sequence = append(sequence, Step{
				Name:     step.Name,
				Subject:  step.Subject,
				Template: step.Template,
				Delay:    delay,
			})
		}
		set[stage] = sequence
	}

	return set, nil
}
