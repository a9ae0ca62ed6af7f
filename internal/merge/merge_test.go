package merge

import (
	"errors"
	"strings"
	"testing"

	"github.com/devenv-tools/devenv/internal/models"
)

func plainDeps(file string, specs ...string) *models.Descriptor {
	d := &models.Descriptor{Path: file, IsIncluded: true}
	for _, s := range specs {
		d.Dependencies = append(d.Dependencies, models.DependencySpec{Spec: s, File: file})
	}
	return d
}

func depSpecs(t *testing.T, m *models.MergedEnvironment) []string {
	t.Helper()
	out := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if d.IsPip() {
			t.Fatalf("unexpected pip block in plain deps: %v", d.Pip)
		}
		out = append(out, d.Spec)
	}
	return out
}

func TestMergeVersionFragmentsAnd(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "numpy >1"),
		plainDeps("b.devenv.yml", "numpy <2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	if len(got) != 1 || got[0] != "numpy >1,<2" {
		t.Errorf("got %v, want [numpy >1,<2]", got)
	}
}

func TestMergeDuplicateFragmentsCollapse(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "pytest >=7"),
		plainDeps("b.devenv.yml", "pytest >=7"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	if len(got) != 1 || got[0] != "pytest >=7" {
		t.Errorf("got %v, want [pytest >=7]", got)
	}
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "zlib", "numpy >1"),
		plainDeps("b.devenv.yml", "abc", "numpy <2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	want := []string{"zlib", "numpy >1,<2", "abc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeConflictingExactPins(t *testing.T) {
	_, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "numpy ==1.21"),
		plainDeps("b.devenv.yml", "numpy ==1.26"),
	})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
	if mergeErr.Subject != "numpy" {
		t.Errorf("subject = %q, want numpy", mergeErr.Subject)
	}
	if mergeErr.FileA != "a.devenv.yml" || mergeErr.FileB != "b.devenv.yml" {
		t.Errorf("files = %q, %q", mergeErr.FileA, mergeErr.FileB)
	}
}

func TestMergeSingleEqualsPinsConflict(t *testing.T) {
	_, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "python =3.10"),
		plainDeps("b.devenv.yml", "python =3.11"),
	})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
}

func TestMergeWildcardPinsAreNotExact(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "python =3.10.*"),
		plainDeps("b.devenv.yml", "python =3.10.4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	if len(got) != 1 || got[0] != "python =3.10.*,=3.10.4" {
		t.Errorf("got %v", got)
	}
}

func TestMergePackageIdentityCaseInsensitive(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "NumPy >1"),
		plainDeps("b.devenv.yml", "numpy <2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	if len(got) != 1 || got[0] != "NumPy >1,<2" {
		t.Errorf("got %v, want display name from first occurrence", got)
	}
}

func TestMergeChannelDistinguishesIdentity(t *testing.T) {
	merged, err := Merge([]*models.Descriptor{
		plainDeps("a.devenv.yml", "conda-forge::pytest"),
		plainDeps("b.devenv.yml", "pytest >7"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := depSpecs(t, merged)
	if len(got) != 2 {
		t.Fatalf("got %v, want two distinct entries", got)
	}
}

func TestMergeConstraintsFoldOnlyIntoDeclaredDeps(t *testing.T) {
	a := plainDeps("a.devenv.yml", "numpy")
	b := &models.Descriptor{
		Path:       "b.devenv.yml",
		IsIncluded: true,
		Constraints: []models.DependencySpec{
			{Spec: "numpy <2", File: "b.devenv.yml"},
			{Spec: "scipy >=1.9", File: "b.devenv.yml"},
		},
	}
	merged, err := Merge([]*models.Descriptor{a, b})
	if err != nil {
		t.Fatal(err)
	}

	got := depSpecs(t, merged)
	if len(got) != 1 || got[0] != "numpy <2" {
		t.Errorf("dependencies = %v, want [numpy <2]", got)
	}
	// The constraint on a package never declared must not appear as a
	// dependency, only numpy's restriction is effective.
	if len(merged.EffectiveConstraints) != 1 {
		t.Fatalf("effective constraints = %v", merged.EffectiveConstraints)
	}
	if merged.EffectiveConstraints[0].Spec != "numpy <2" {
		t.Errorf("effective constraint = %q", merged.EffectiveConstraints[0].Spec)
	}
}

func TestMergeConstraintConflictsWithDependencyPin(t *testing.T) {
	a := plainDeps("a.devenv.yml", "numpy ==1.21")
	b := &models.Descriptor{
		Path:        "b.devenv.yml",
		IsIncluded:  true,
		Constraints: []models.DependencySpec{{Spec: "numpy ==1.26", File: "b.devenv.yml"}},
	}
	_, err := Merge([]*models.Descriptor{a, b})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
}

func TestMergePipBlocksConcatenate(t *testing.T) {
	a := &models.Descriptor{
		Path:       "a.devenv.yml",
		IsIncluded: true,
		Dependencies: []models.DependencySpec{
			{Spec: "python", File: "a.devenv.yml"},
			{Pip: []string{"requests >=2", "sphinx"}, File: "a.devenv.yml"},
		},
	}
	b := &models.Descriptor{
		Path:       "b.devenv.yml",
		IsIncluded: true,
		Dependencies: []models.DependencySpec{
			{Pip: []string{"requests <3", "black"}, File: "b.devenv.yml"},
		},
	}
	merged, err := Merge([]*models.Descriptor{a, b})
	if err != nil {
		t.Fatal(err)
	}

	last := merged.Dependencies[len(merged.Dependencies)-1]
	if !last.IsPip() {
		t.Fatalf("last entry is not the pip block: %+v", last)
	}
	want := []string{"requests >=2,<3", "sphinx", "black"}
	if len(last.Pip) != len(want) {
		t.Fatalf("pip block = %v, want %v", last.Pip, want)
	}
	for i := range want {
		if last.Pip[i] != want[i] {
			t.Errorf("pip[%d] = %q, want %q", i, last.Pip[i], want[i])
		}
	}
}

func TestMergePipPassthroughRequirements(t *testing.T) {
	a := &models.Descriptor{
		Path:       "a.devenv.yml",
		IsIncluded: true,
		Dependencies: []models.DependencySpec{
			{Pip: []string{"git+https://example.com/pkg.git", "--editable ../lib"}, File: "a.devenv.yml"},
		},
	}
	merged, err := Merge([]*models.Descriptor{a})
	if err != nil {
		t.Fatal(err)
	}
	last := merged.Dependencies[len(merged.Dependencies)-1]
	if len(last.Pip) != 2 || last.Pip[0] != "git+https://example.com/pkg.git" {
		t.Errorf("pip block = %v", last.Pip)
	}
}

func TestMergePipAndPlainOverlapFails(t *testing.T) {
	a := plainDeps("a.devenv.yml", "requests")
	b := &models.Descriptor{
		Path:       "b.devenv.yml",
		IsIncluded: true,
		Dependencies: []models.DependencySpec{
			{Pip: []string{"requests >=2"}, File: "b.devenv.yml"},
		},
	}
	_, err := Merge([]*models.Descriptor{a, b})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
	if !strings.Contains(mergeErr.Reason, "pip") {
		t.Errorf("reason = %q", mergeErr.Reason)
	}
}

func TestMergeNameFromEntryPoint(t *testing.T) {
	included := plainDeps("base.devenv.yml", "zlib")
	included.Name = "base"
	root := &models.Descriptor{Name: "app", Path: "app.devenv.yml"}
	merged, err := Merge([]*models.Descriptor{included, root})
	if err != nil {
		t.Fatal(err)
	}
	if merged.Name != "app" {
		t.Errorf("name = %q, want app", merged.Name)
	}
}

func TestMergeChannelsDedupInOrder(t *testing.T) {
	a := &models.Descriptor{Path: "a.devenv.yml", IsIncluded: true, Channels: []string{"conda-forge", "defaults"}}
	b := &models.Descriptor{Path: "b.devenv.yml", Channels: []string{"defaults", "bioconda"}}
	merged, err := Merge([]*models.Descriptor{a, b})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"conda-forge", "defaults", "bioconda"}
	if len(merged.Channels) != len(want) {
		t.Fatalf("channels = %v, want %v", merged.Channels, want)
	}
	for i := range want {
		if merged.Channels[i] != want[i] {
			t.Errorf("channels[%d] = %q, want %q", i, merged.Channels[i], want[i])
		}
	}
}

func TestMergeEnvironmentAppendConcatenates(t *testing.T) {
	a := &models.Descriptor{
		Path:       "a.devenv.yml",
		IsIncluded: true,
		Environment: []models.EnvVar{
			{Name: "PATH", Value: models.Append("/opt/a/bin")},
		},
	}
	b := &models.Descriptor{
		Path: "b.devenv.yml",
		Environment: []models.EnvVar{
			{Name: "PATH", Value: models.Append("/opt/b/bin", "/opt/a/bin")},
		},
	}
	merged, err := Merge([]*models.Descriptor{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Environment) != 1 {
		t.Fatalf("environment = %+v", merged.Environment)
	}
	got := merged.Environment[0].Value.List
	want := []string{"/opt/a/bin", "/opt/b/bin", "/opt/a/bin"}
	if len(got) != len(want) {
		t.Fatalf("PATH list = %v, want %v (duplicates kept)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PATH[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeEnvironmentKindMismatch(t *testing.T) {
	a := &models.Descriptor{
		Path:        "a.devenv.yml",
		IsIncluded:  true,
		Environment: []models.EnvVar{{Name: "LD_LIBRARY_PATH", Value: models.Append("/opt/lib")}},
	}
	b := &models.Descriptor{
		Path:        "b.devenv.yml",
		Environment: []models.EnvVar{{Name: "LD_LIBRARY_PATH", Value: models.Overwrite("/usr/lib")}},
	}
	_, err := Merge([]*models.Descriptor{a, b})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
	if mergeErr.Subject != "LD_LIBRARY_PATH" {
		t.Errorf("subject = %q", mergeErr.Subject)
	}
}

func TestMergeEnvironmentOverwriteCollision(t *testing.T) {
	a := &models.Descriptor{
		Path:        "a.devenv.yml",
		IsIncluded:  true,
		Environment: []models.EnvVar{{Name: "JAVA_HOME", Value: models.Overwrite("/opt/java8")}},
	}
	b := &models.Descriptor{
		Path:        "b.devenv.yml",
		Environment: []models.EnvVar{{Name: "JAVA_HOME", Value: models.Overwrite("/opt/java11")}},
	}
	_, err := Merge([]*models.Descriptor{a, b})
	var mergeErr *models.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("got %v, want MergeError", err)
	}
}

func TestMergeEnvironmentOverwriteSameValueOK(t *testing.T) {
	a := &models.Descriptor{
		Path:        "a.devenv.yml",
		IsIncluded:  true,
		Environment: []models.EnvVar{{Name: "PYTHONHASHSEED", Value: models.Overwrite("0")}},
	}
	b := &models.Descriptor{
		Path:        "b.devenv.yml",
		Environment: []models.EnvVar{{Name: "PYTHONHASHSEED", Value: models.Overwrite("0")}},
	}
	merged, err := Merge([]*models.Descriptor{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if merged.Environment[0].Value.Scalar != "0" {
		t.Errorf("value = %q", merged.Environment[0].Value.Scalar)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	if _, err := Merge(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
