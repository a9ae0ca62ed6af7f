package descriptor

import (
	"testing"

	"github.com/devenv-tools/devenv/internal/merge"
	"github.com/devenv-tools/devenv/internal/platform"
)

// A constraint declared in an included file must restrict a dependency
// that only appears later, in the file that includes it.
func TestResolveAndMergeConstraintFromInclude(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "common.devenv.yml", `
name: common
dependencies:
- boltons
- attrs
constraints:
- pytest >7
`)
	root := writeDescriptor(t, dir, "app2.devenv.yml", `
name: app2
includes:
- common.devenv.yml
dependencies:
- pyqt
- pytest
`)

	descriptors, err := Resolve(root, platform.Linux64)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := merge.Merge(descriptors)
	if err != nil {
		t.Fatal(err)
	}

	if merged.Name != "app2" {
		t.Errorf("name = %q", merged.Name)
	}

	want := []string{"boltons", "attrs", "pyqt", "pytest >7"}
	if len(merged.Dependencies) != len(want) {
		t.Fatalf("dependencies = %+v, want %v", merged.Dependencies, want)
	}
	for i, spec := range want {
		if merged.Dependencies[i].Spec != spec {
			t.Errorf("dep[%d] = %q, want %q", i, merged.Dependencies[i].Spec, spec)
		}
	}

	if len(merged.EffectiveConstraints) != 1 || merged.EffectiveConstraints[0].Spec != "pytest >7" {
		t.Errorf("effective constraints = %+v", merged.EffectiveConstraints)
	}
}
