package models

// EnvKind identifies the mutation kind of an environment variable value.
// The kind is fixed per variable across a whole merge.
type EnvKind int

const (
	// EnvOverwrite replaces any previous value with a single string.
	EnvOverwrite EnvKind = iota
	// EnvAppend contributes an ordered path-like list that is prepended
	// to the pre-existing value on activation.
	EnvAppend
)

func (k EnvKind) String() string {
	switch k {
	case EnvOverwrite:
		return "overwrite"
	case EnvAppend:
		return "append"
	}
	return "unknown"
}

// EnvValue is a tagged variant: either a single OVERWRITE string or an
// ordered APPEND list. Exactly one of Scalar/List is meaningful, selected
// by Kind.
type EnvValue struct {
	Kind   EnvKind
	Scalar string
	List   []string
}

// Overwrite constructs an OVERWRITE value.
func Overwrite(value string) EnvValue {
	return EnvValue{Kind: EnvOverwrite, Scalar: value}
}

// Append constructs an APPEND value.
func Append(values ...string) EnvValue {
	if values == nil {
		values = []string{}
	}
	return EnvValue{Kind: EnvAppend, List: values}
}

// Equal reports whether two values have the same kind and content.
func (v EnvValue) Equal(other EnvValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case EnvOverwrite:
		return v.Scalar == other.Scalar
	case EnvAppend:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}
