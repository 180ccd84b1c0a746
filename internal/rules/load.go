package rules

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Load reads an ordered list of rule Descriptors from YAML.
func Load(r io.Reader) ([]Descriptor, error) {
	var descriptors []Descriptor
	if err := yaml.NewDecoder(r).Decode(&descriptors); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	for i, desc := range descriptors {
		if desc.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i+1)
		}
		if desc.Action == "" {
			return nil, fmt.Errorf("rule %q: action is required", desc.Name)
		}
	}
	return descriptors, nil
}
