package registration

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Definition is an agent definition file, for example:
//
//	name: ReviewerAgent
//	model: gpt-4.1
//	description: Reviews pull requests.
//	instructions: |
//	  You review code.
//	metadata:
//	  team: platform
type Definition struct {
	Name         string            `json:"name,omitempty"`
	Model        string            `json:"model,omitempty"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// LoadDefinition parses a YAML or JSON definition file. Unknown keys are
// rejected.
func LoadDefinition(fsys afero.Fs, path string) (*Definition, error) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	var def Definition
	if err := yaml.UnmarshalStrict(b, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition %s: %w", path, err)
	}
	def.Instructions = strings.TrimSpace(def.Instructions)
	return &def, nil
}

// Apply overrides opts with every field the definition sets.
func (d *Definition) Apply(opts *Options) error {
	src := Options{
		Name:         d.Name,
		Model:        d.Model,
		Description:  d.Description,
		Instructions: d.Instructions,
		Metadata:     d.Metadata,
	}
	if err := mergo.Merge(opts, src, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply definition: %w", err)
	}
	return nil
}
