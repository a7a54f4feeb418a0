package analytics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clickpulse/internal/events"
)

// FunnelDefinition is one named funnel loaded from the funnels file.
type FunnelDefinition struct {
	Name  string       `yaml:"name"`
	Steps []StepConfig `yaml:"steps"`
}

// StepConfig is the declarative form of a funnel step predicate. Empty
// fields are wildcards; set fields must all match.
type StepConfig struct {
	Name        string   `yaml:"name"`
	Pages       []string `yaml:"pages"`
	EventType   string   `yaml:"eventType"`
	ElementText string   `yaml:"elementText"`
}

// Compile turns the declarative steps into executable step definitions.
func (d FunnelDefinition) Compile() []StepDefinition {
	steps := make([]StepDefinition, len(d.Steps))
	for i, sc := range d.Steps {
		sc := sc
		steps[i] = StepDefinition{
			Name:  sc.Name,
			Match: sc.matches,
		}
	}
	return steps
}

func (sc StepConfig) matches(e events.Event) bool {
	if sc.EventType != "" && e.EventType != events.EventType(sc.EventType) {
		return false
	}
	if sc.ElementText != "" && e.ElementText != sc.ElementText {
		return false
	}
	if len(sc.Pages) > 0 {
		found := false
		for _, page := range sc.Pages {
			if e.PageURL == page {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type funnelsFile struct {
	Funnels []FunnelDefinition `yaml:"funnels"`
}

// LoadFunnels reads funnel definitions from a YAML file. A missing file is
// not an error; it yields no funnels so the dashboard shows an empty state.
func LoadFunnels(path string) ([]FunnelDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read funnels file: %w", err)
	}

	var parsed funnelsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse funnels file: %w", err)
	}

	for _, funnel := range parsed.Funnels {
		if funnel.Name == "" {
			return nil, fmt.Errorf("funnels file contains a funnel without a name")
		}
		for _, step := range funnel.Steps {
			if step.Name == "" {
				return nil, fmt.Errorf("funnel %q contains a step without a name", funnel.Name)
			}
		}
	}

	return parsed.Funnels, nil
}
