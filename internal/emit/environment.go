// Package emit renders the merged environment into the artifacts the
// external tooling consumes: the plain package-manager environment file
// and the reversible activate/deactivate shell scripts.
package emit

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devenv-tools/devenv/internal/models"
)

// Header marks generated environment files.
const Header = "# generated by devenv, do not modify and do not commit to VCS\n"

// condaEnvironment is the subset of the descriptor shape understood by the
// external package manager.
type condaEnvironment struct {
	Name         string   `yaml:"name,omitempty"`
	Channels     []string `yaml:"channels,omitempty"`
	Dependencies []any    `yaml:"dependencies,omitempty"`
}

// EnvironmentFile renders the merged result as a plain environment file:
// name, channels and dependencies only, with constraint-derived pins
// already folded into the dependency specs.
func EnvironmentFile(m *models.MergedEnvironment, name string) (string, error) {
	out := condaEnvironment{Name: name, Channels: m.Channels}
	for _, dep := range m.Dependencies {
		if dep.IsPip() {
			out.Dependencies = append(out.Dependencies, map[string][]string{"pip": dep.Pip})
			continue
		}
		out.Dependencies = append(out.Dependencies, dep.Spec)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding environment file: %w", err)
	}
	return Header + string(data), nil
}

// EnvironmentSection renders the resolved environment-variable mutations
// as a YAML 'environment' mapping, preserving declaration order. Used by
// the full print mode, which the plain environment file leaves out.
func EnvironmentSection(env []models.EnvVar) (string, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, ev := range env {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ev.Name}
		var val *yaml.Node
		switch ev.Value.Kind {
		case models.EnvOverwrite:
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ev.Value.Scalar}
		case models.EnvAppend:
			val = &yaml.Node{Kind: yaml.SequenceNode}
			for _, item := range ev.Value.List {
				val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
			}
		}
		mapping.Content = append(mapping.Content, key, val)
	}

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "environment"},
			mapping,
		},
	}

	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("encoding environment section: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding environment section: %w", err)
	}
	return b.String(), nil
}
