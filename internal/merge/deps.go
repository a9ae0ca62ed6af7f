package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devenv-tools/devenv/internal/models"
)

// depEntry accumulates everything seen for one package identity: the name
// as first written and the ordered, deduplicated version fragments.
type depEntry struct {
	display   string
	fragments []string
	file      string
}

func (e *depEntry) spec() string {
	if len(e.fragments) == 0 {
		return e.display
	}
	return e.display + " " + strings.Join(e.fragments, ",")
}

// An exact pin ("=1.2" or "==1.2" with no wildcard) admits no AND-merge
// with a different exact pin.
var exactPinPattern = regexp.MustCompile(`^==?[^<>!~,|]+$`)

func isExactPin(fragment string) bool {
	return exactPinPattern.MatchString(fragment) && !strings.Contains(fragment, "*")
}

// addFragments merges new version fragments into an entry with AND
// semantics: distinct fragments concatenate (e.g. ">1" plus "<2" becomes
// ">1,<2"), duplicates collapse, and two exact pins for different versions
// are irreconcilable.
func (e *depEntry) addFragments(version, file string) error {
	for _, fragment := range splitFragments(version) {
		if containsString(e.fragments, fragment) {
			continue
		}
		if isExactPin(fragment) {
			for _, existing := range e.fragments {
				if isExactPin(existing) {
					return &models.MergeError{
						Subject: e.display,
						FileA:   e.file,
						FileB:   file,
						Reason:  fmt.Sprintf("conflicting exact pins %q and %q", existing, fragment),
					}
				}
			}
		}
		e.fragments = append(e.fragments, fragment)
	}
	return nil
}

func splitFragments(version string) []string {
	if version == "" {
		return nil
	}
	parts := strings.Split(version, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// specSet collects plain specs in first-occurrence order keyed by
// case-insensitive channel+name identity.
type specSet struct {
	order   []string
	entries map[string]*depEntry
}

func newSpecSet() *specSet {
	return &specSet{entries: make(map[string]*depEntry)}
}

func (s *specSet) add(spec models.DependencySpec) error {
	pkg, err := models.ParsePackageSpec(spec.Spec)
	if err != nil {
		return &models.ParseError{File: spec.File, Err: err}
	}
	identity := pkg.Identity()
	entry, ok := s.entries[identity]
	if !ok {
		entry = &depEntry{display: pkg.Channel + pkg.Name, file: spec.File}
		s.entries[identity] = entry
		s.order = append(s.order, identity)
	}
	return entry.addFragments(pkg.Version, spec.File)
}

func (s *specSet) has(identity string) bool {
	_, ok := s.entries[identity]
	return ok
}

// mergeDependencies walks the descriptors in traversal order and produces
// the unified dependency list plus the effective constraints. Constraints
// never introduce a package: they fold their version restrictions into a
// dependency only when that name was directly declared.
func mergeDependencies(descriptors []*models.Descriptor) ([]models.DependencySpec, []models.DependencySpec, error) {
	deps := newSpecSet()
	pip := newPipSet()
	constraints := newSpecSet()

	for _, d := range descriptors {
		for _, spec := range d.Dependencies {
			if spec.IsPip() {
				if err := pip.add(spec); err != nil {
					return nil, nil, err
				}
				continue
			}
			if err := deps.add(spec); err != nil {
				return nil, nil, err
			}
		}
		for _, spec := range d.Constraints {
			if err := constraints.add(spec); err != nil {
				return nil, nil, err
			}
		}
	}

	// The same package must not be requested from both the package
	// manager and pip.
	if err := pip.checkOverlap(deps); err != nil {
		return nil, nil, err
	}

	// Fold effective constraint restrictions into the dependency specs.
	var effective []models.DependencySpec
	for _, identity := range constraints.order {
		if !deps.has(identity) {
			continue
		}
		c := constraints.entries[identity]
		if err := deps.entries[identity].addFragments(strings.Join(c.fragments, ","), c.file); err != nil {
			return nil, nil, err
		}
		effective = append(effective, models.DependencySpec{Spec: c.spec(), File: c.file})
	}

	merged := make([]models.DependencySpec, 0, len(deps.order)+1)
	for _, identity := range deps.order {
		entry := deps.entries[identity]
		merged = append(merged, models.DependencySpec{Spec: entry.spec(), File: entry.file})
	}
	if block := pip.block(); block != nil {
		merged = append(merged, *block)
	}

	return merged, effective, nil
}
