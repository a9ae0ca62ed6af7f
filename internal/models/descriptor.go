package models

// Descriptor represents one parsed environment descriptor file, after
// template rendering and selector filtering.
type Descriptor struct {
	Name         string
	Dependencies []DependencySpec
	Constraints  []DependencySpec
	Environment  []EnvVar
	Includes     []string
	Channels     []string
	Platforms    []string

	// IsIncluded is true when this descriptor was reached through an
	// 'includes' entry rather than being the entry point.
	IsIncluded bool

	// Path is the canonical path of the source file.
	Path string
}

// EnvVar is a single environment-variable mutation declared by a descriptor.
// Declaration order within a descriptor is preserved.
type EnvVar struct {
	Name  string
	Value EnvValue
}

// MergedEnvironment is the unified result of merging a resolved sequence of
// descriptors. It is computed once per invocation and not mutated afterwards.
type MergedEnvironment struct {
	Name      string
	Channels  []string
	Platforms []string

	// Dependencies is deduplicated by package-name identity, ordered by
	// first occurrence across the traversal, with effective constraint
	// pins already folded into the spec strings.
	Dependencies []DependencySpec

	// Environment holds the fully resolved variable mutations in
	// declaration order.
	Environment []EnvVar

	// EffectiveConstraints are the constraints restricted to names that
	// appear in Dependencies from a direct declaration.
	EffectiveConstraints []DependencySpec
}

// RequireName returns the environment name, preferring the override when
// given. A missing name is a configuration error since the package manager
// needs one.
func (m *MergedEnvironment) RequireName(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if m.Name == "" {
		return "", &ConfigError{
			Msg:  "the environment file has no 'name' key defined",
			Hint: "add a 'name' key to the root descriptor or pass --name",
		}
	}
	return m.Name, nil
}
