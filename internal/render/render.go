// Package render runs descriptor text through text/template before
// structured parsing, exposing the platform predicates plus a small set of
// helper functions (get_env, min_devenv_version) alongside the sprig
// function set.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/semver/v3"
	"github.com/Masterminds/sprig/v3"

	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
	"github.com/devenv-tools/devenv/internal/version"
)

// Context carries the bindings available to a descriptor template.
type Context struct {
	// Path of the descriptor file being rendered; its directory is bound
	// as {{ .root }}.
	Path       string
	Platform   platform.Platform
	IsIncluded bool
}

// Render executes the descriptor template. The data namespace is the
// platform predicate set (so selectors and templates agree on a single
// vocabulary) plus "root".
func Render(contents string, ctx Context) (string, error) {
	abs, err := filepath.Abs(ctx.Path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", ctx.Path, err)
	}

	data := ctx.Platform.Selectors(ctx.IsIncluded)
	data["root"] = filepath.Dir(abs)

	funcs := sprig.TxtFuncMap()
	funcs["get_env"] = getEnv
	funcs["min_devenv_version"] = minDevenvVersion

	tpl, err := template.New(filepath.Base(abs)).Funcs(funcs).Parse(contents)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return buf.String(), nil
}

// getEnv returns the value of an environment variable, or the default when
// the variable is unset. With no default, an unset variable is an error.
func getEnv(name string, def ...string) (string, error) {
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if len(def) > 0 {
		return def[0], nil
	}
	return "", fmt.Errorf("environment variable %s is not set", name)
}

// minDevenvVersion gates a descriptor on a minimum devenv version. It
// renders to nothing on success and aborts rendering when the running
// version is too old.
func minDevenvVersion(minimum string) (string, error) {
	required, err := semver.NewVersion(minimum)
	if err != nil {
		return "", fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}
	running, err := semver.NewVersion(version.Version)
	if err != nil {
		return "", fmt.Errorf("invalid running version %q: %w", version.Version, err)
	}
	if running.LessThan(required) {
		return "", &models.ConfigError{
			Msg:  fmt.Sprintf("this file requires at minimum devenv %s, but you have %s installed", minimum, version.Version),
			Hint: "please update devenv",
		}
	}
	return "", nil
}
