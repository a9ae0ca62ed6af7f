// Package descriptor loads environment descriptor files and resolves their
// include graphs into the flattened sequence consumed by the merge engine.
package descriptor

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
	"github.com/devenv-tools/devenv/internal/render"
	"github.com/devenv-tools/devenv/internal/selector"
)

// Load reads a single descriptor file, renders its template, applies
// selector filtering for the given platform, and parses the result into
// structured fields. Environment key order and dependency declaration
// order are preserved.
func Load(path string, plat platform.Platform, isIncluded bool) (*models.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}

	rendered, err := render.Render(string(data), render.Context{
		Path:       path,
		Platform:   plat,
		IsIncluded: isIncluded,
	})
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &models.ParseError{File: path, Err: err}
	}

	filtered, line, err := selector.FilterLines(rendered, plat.Selectors(isIncluded))
	if err != nil {
		return nil, &models.ParseError{File: path, Line: line, Err: err}
	}

	return parse(filtered, path, isIncluded)
}

func parse(contents, path string, isIncluded bool) (*models.Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(contents), &doc); err != nil {
		return nil, &models.ParseError{File: path, Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &models.ParseError{File: path, Err: errors.New("the file is empty")}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &models.ParseError{
			File: path,
			Line: root.Line,
			Err:  errors.New("the top level must be a mapping"),
		}
	}

	d := &models.Descriptor{IsIncluded: isIncluded, Path: path}
	for i := 0; i < len(root.Content)-1; i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if isNull(val) {
			continue
		}
		var err error
		switch key.Value {
		case "name":
			d.Name = val.Value
		case "dependencies":
			d.Dependencies, err = parseDependencies(val, path)
		case "constraints":
			d.Constraints, err = parseSpecSequence(val, path, "constraints")
		case "environment":
			d.Environment, err = parseEnvironment(val, path)
		case "includes":
			d.Includes, err = parseStrings(val, path, "includes")
		case "channels":
			d.Channels, err = parseStrings(val, path, "channels")
		case "platforms":
			d.Platforms, err = parseStrings(val, path, "platforms")
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parseDependencies(node *yaml.Node, path string) ([]models.DependencySpec, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, shapeError(path, node, "'dependencies' must be a sequence")
	}
	deps := make([]models.DependencySpec, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			deps = append(deps, models.DependencySpec{Spec: item.Value, File: path})
		case yaml.MappingNode:
			if len(item.Content) != 2 || item.Content[0].Value != "pip" {
				return nil, shapeError(path, item, "nested dependency blocks must have a single 'pip' key")
			}
			reqs, err := parseStrings(item.Content[1], path, "pip")
			if err != nil {
				return nil, err
			}
			if reqs == nil {
				reqs = []string{}
			}
			deps = append(deps, models.DependencySpec{Pip: reqs, File: path})
		default:
			return nil, shapeError(path, item, "dependency entries must be strings or a pip block")
		}
	}
	return deps, nil
}

func parseSpecSequence(node *yaml.Node, path, key string) ([]models.DependencySpec, error) {
	specs, err := parseStrings(node, path, key)
	if err != nil {
		return nil, err
	}
	out := make([]models.DependencySpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, models.DependencySpec{Spec: s, File: path})
	}
	return out, nil
}

func parseEnvironment(node *yaml.Node, path string) ([]models.EnvVar, error) {
	if node.Kind != yaml.MappingNode {
		return nil, shapeError(path, node, "'environment' must be a mapping")
	}
	vars := make([]models.EnvVar, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content)-1; i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case isNull(val):
			vars = append(vars, models.EnvVar{Name: key.Value, Value: models.Overwrite("")})
		case val.Kind == yaml.ScalarNode:
			vars = append(vars, models.EnvVar{Name: key.Value, Value: models.Overwrite(val.Value)})
		case val.Kind == yaml.SequenceNode:
			items, err := parseStrings(val, path, key.Value)
			if err != nil {
				return nil, err
			}
			vars = append(vars, models.EnvVar{Name: key.Value, Value: models.Append(items...)})
		default:
			return nil, shapeError(path, val, fmt.Sprintf("environment value for %s must be a string or a list", key.Value))
		}
	}
	return vars, nil
}

func parseStrings(node *yaml.Node, path, key string) ([]string, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, shapeError(path, node, fmt.Sprintf("'%s' must be a sequence", key))
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, shapeError(path, item, fmt.Sprintf("'%s' entries must be strings", key))
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func shapeError(path string, node *yaml.Node, msg string) error {
	return &models.ParseError{File: path, Line: node.Line, Err: errors.New(msg)}
}
