// Package merge combines a resolved sequence of descriptors into one
// unified dependency list, one environment-variable mutation set, and one
// effective constraint set, with deterministic conflict detection. It is
// pure: no I/O, no process state.
package merge

import (
	"errors"

	"github.com/devenv-tools/devenv/internal/models"
)

// Merge combines descriptors in traversal order (includes before the file
// that includes them) into a MergedEnvironment. It fails with a MergeError
// on irreconcilable conflicts.
func Merge(descriptors []*models.Descriptor) (*models.MergedEnvironment, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("no descriptors to merge")
	}

	deps, constraints, err := mergeDependencies(descriptors)
	if err != nil {
		return nil, err
	}

	env, err := mergeEnvironment(descriptors)
	if err != nil {
		return nil, err
	}

	merged := &models.MergedEnvironment{
		Dependencies:         deps,
		Environment:          env,
		EffectiveConstraints: constraints,
	}

	// The name always comes from the entry-point descriptor; includes
	// never change it.
	for _, d := range descriptors {
		if !d.IsIncluded {
			merged.Name = d.Name
		}
	}

	merged.Channels = dedupConcat(descriptors, func(d *models.Descriptor) []string { return d.Channels })
	merged.Platforms = dedupConcat(descriptors, func(d *models.Descriptor) []string { return d.Platforms })

	return merged, nil
}

// dedupConcat concatenates a string field across traversal order, keeping
// the first occurrence of each exact string.
func dedupConcat(descriptors []*models.Descriptor, field func(*models.Descriptor) []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range descriptors {
		for _, s := range field(d) {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// mergeEnvironment resolves the environment-variable mutations. The kind
// of a variable (append vs overwrite) is fixed by its first declaration;
// mixing kinds is a hard error. Append lists concatenate positionally.
// Overwrite values may only be restated with the same value from another
// file; a different value from a different file is a collision.
func mergeEnvironment(descriptors []*models.Descriptor) ([]models.EnvVar, error) {
	type state struct {
		value models.EnvValue
		file  string
	}

	var order []string
	states := make(map[string]*state)

	for _, d := range descriptors {
		for _, ev := range d.Environment {
			st, ok := states[ev.Name]
			if !ok {
				value := ev.Value
				if value.Kind == models.EnvAppend {
					value.List = append([]string(nil), value.List...)
				}
				states[ev.Name] = &state{value: value, file: d.Path}
				order = append(order, ev.Name)
				continue
			}

			if st.value.Kind != ev.Value.Kind {
				return nil, &models.MergeError{
					Subject: ev.Name,
					FileA:   st.file,
					FileB:   d.Path,
					Reason:  "cannot mix list (append) and string (overwrite) declarations for the same variable",
				}
			}

			switch ev.Value.Kind {
			case models.EnvAppend:
				// Paths are positional; duplicates are kept.
				st.value.List = append(st.value.List, ev.Value.List...)
				st.file = d.Path
			case models.EnvOverwrite:
				if st.value.Scalar == ev.Value.Scalar {
					continue
				}
				if st.file != d.Path {
					return nil, &models.MergeError{
						Subject: ev.Name,
						FileA:   st.file,
						FileB:   d.Path,
						Reason:  "overwrite collision: both files set a different value",
					}
				}
				st.value.Scalar = ev.Value.Scalar
			}
		}
	}

	out := make([]models.EnvVar, 0, len(order))
	for _, name := range order {
		out = append(out, models.EnvVar{Name: name, Value: states[name].value})
	}
	return out, nil
}
