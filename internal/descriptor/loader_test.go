package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
)

func writeDescriptor(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), "app.devenv.yml", `
name: app
channels:
- conda-forge
dependencies:
- numpy >1
- pytest
- pip:
  - requests >=2
environment:
  PATH:
  - /opt/app/bin
  JAVA_HOME: /opt/java
  EMPTY:
includes:
- base.devenv.yml
platforms:
- linux-64
- win-64
constraints:
- numpy <2
`)

	d, err := Load(path, platform.Linux64, false)
	if err != nil {
		t.Fatal(err)
	}

	if d.Name != "app" {
		t.Errorf("name = %q", d.Name)
	}
	if d.IsIncluded {
		t.Error("entry point must not be marked included")
	}
	if len(d.Dependencies) != 3 {
		t.Fatalf("dependencies = %+v", d.Dependencies)
	}
	if d.Dependencies[0].Spec != "numpy >1" {
		t.Errorf("dep[0] = %+v", d.Dependencies[0])
	}
	if !d.Dependencies[2].IsPip() || d.Dependencies[2].Pip[0] != "requests >=2" {
		t.Errorf("dep[2] = %+v", d.Dependencies[2])
	}
	if d.Dependencies[0].File != path {
		t.Errorf("dep file = %q, want %q", d.Dependencies[0].File, path)
	}

	if len(d.Environment) != 3 {
		t.Fatalf("environment = %+v", d.Environment)
	}
	if d.Environment[0].Name != "PATH" || d.Environment[0].Value.Kind != models.EnvAppend {
		t.Errorf("env[0] = %+v", d.Environment[0])
	}
	if d.Environment[1].Name != "JAVA_HOME" || !d.Environment[1].Value.Equal(models.Overwrite("/opt/java")) {
		t.Errorf("env[1] = %+v", d.Environment[1])
	}
	if d.Environment[2].Name != "EMPTY" || !d.Environment[2].Value.Equal(models.Overwrite("")) {
		t.Errorf("null value must become an empty overwrite: %+v", d.Environment[2])
	}

	if len(d.Includes) != 1 || d.Includes[0] != "base.devenv.yml" {
		t.Errorf("includes = %v", d.Includes)
	}
	if len(d.Channels) != 1 || len(d.Platforms) != 2 {
		t.Errorf("channels = %v, platforms = %v", d.Channels, d.Platforms)
	}
	if len(d.Constraints) != 1 || d.Constraints[0].Spec != "numpy <2" {
		t.Errorf("constraints = %+v", d.Constraints)
	}
}

func TestLoadSelectorFiltering(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), "sel.devenv.yml", `
name: sel
dependencies:
- numpy
- pywin32  # [win]
- gdb      # [linux]
`)

	d, err := Load(path, platform.Linux64, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Dependencies) != 2 {
		t.Fatalf("dependencies = %+v", d.Dependencies)
	}
	if d.Dependencies[1].Spec != "gdb" {
		t.Errorf("dep[1] = %+v", d.Dependencies[1])
	}

	d, err = Load(path, platform.Win64, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Dependencies) != 2 || d.Dependencies[1].Spec != "pywin32" {
		t.Errorf("win dependencies = %+v", d.Dependencies)
	}
}

func TestLoadTemplate(t *testing.T) {
	t.Setenv("DEVENV_TEST_PY", "3.11")
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "tpl.devenv.yml", `
name: tpl
dependencies:
- python ={{ get_env "DEVENV_TEST_PY" }}
environment:
  PROJECT_ROOT: {{ .root }}
`)

	d, err := Load(path, platform.Linux64, false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Dependencies[0].Spec != "python =3.11" {
		t.Errorf("dep[0] = %+v", d.Dependencies[0])
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := filepath.EvalSymlinks(d.Environment[0].Value.Scalar)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("PROJECT_ROOT = %q, want %q", got, root)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), "empty.devenv.yml", "")
	_, err := Load(path, platform.Linux64, false)
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("got %v, want ParseError", err)
	}
}

func TestLoadBadShape(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"top level sequence", "- numpy\n"},
		{"dependencies not a sequence", "dependencies: numpy\n"},
		{"pip block with extra keys", "dependencies:\n- pip:\n  - requests\n  other: 1\n"},
		{"environment not a mapping", "environment:\n- PATH\n"},
		{"includes not strings", "includes:\n- {a: 1}\n"},
	}
	dir := t.TempDir()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDescriptor(t, dir, "bad.devenv.yml", tc.contents)
			_, err := Load(path, platform.Linux64, false)
			var parseErr *models.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("got %v, want ParseError", err)
			}
			if parseErr.File != path {
				t.Errorf("file = %q, want %q", parseErr.File, path)
			}
		})
	}
}

func TestLoadMinVersionGateIsConfigError(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), "gate.devenv.yml", `{{ min_devenv_version "99.0" }}
name: gate
`)
	_, err := Load(path, platform.Linux64, false)
	var configErr *models.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("got %v, want ConfigError", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.devenv.yml"), platform.Linux64, false)
	if err == nil {
		t.Fatal("expected error")
	}
}
