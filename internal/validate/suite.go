package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is an ordered expectation suite. Rule order is preserved into the
// report.
type Suite struct {
	Name  string `yaml:"name" json:"name"`
	Rules []Rule `yaml:"rules" json:"rules"`
}

// ParseSuite parses a YAML expectation suite and checks that every rule is
// well-formed.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}

	if len(s.Rules) == 0 {
		return nil, fmt.Errorf("suite %q has no rules", s.Name)
	}

	for i, r := range s.Rules {
		if err := r.check(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}

	return &s, nil
}

// LoadSuite reads and parses an expectation suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
	}

	s, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteFile writes the suite as YAML.
func (s *Suite) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal suite: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write suite %s: %w", path, err)
	}
	return nil
}
