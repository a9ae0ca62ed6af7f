// Package envmgr shells out to the external environment manager (conda or
// mamba) and to its locking tool. Output is streamed through verbatim; a
// non-zero exit is fatal with no retry.
package envmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/devenv-tools/devenv/internal/models"
)

// Manager invokes a resolved environment manager binary.
type Manager struct {
	Name   string
	Quiet  bool
	Stdout io.Writer
	Stderr io.Writer
}

// Resolve validates the manager name and checks it is on PATH.
func Resolve(name string) (*Manager, error) {
	if name != "conda" && name != "mamba" {
		return nil, &models.ConfigError{
			Msg:  fmt.Sprintf("unknown environment manager %q", name),
			Hint: "supported managers are conda and mamba",
		}
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil, &models.ConfigError{
			Msg:  fmt.Sprintf("could not find %q on PATH", name),
			Hint: "install it or select another manager with --env-manager",
		}
	}
	return &Manager{Name: name, Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

// run executes the manager with the given arguments, streaming output.
func (m *Manager) run(ctx context.Context, args ...string) error {
	if !m.Quiet {
		color.Cyan("%s %s", m.Name, strings.Join(args, " "))
	}
	slog.Debug("invoking environment manager", "tool", m.Name, "args", args)

	cmd := exec.CommandContext(ctx, m.Name, args...)
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &models.ExternalToolError{Tool: m.Name, Args: args, ExitCode: exitErr.ExitCode()}
	}
	return fmt.Errorf("running %s: %w", m.Name, err)
}

// UpdateOptions configures an environment update invocation.
type UpdateOptions struct {
	File      string
	Name      string
	Prune     bool
	Verbosity int
}

// EnvUpdate creates or updates an environment from a rendered environment
// file.
func (m *Manager) EnvUpdate(ctx context.Context, opts UpdateOptions) error {
	args := []string{"env", "update", "--file", opts.File}
	if opts.Prune {
		args = append(args, "--prune")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if m.Quiet {
		args = append(args, "--quiet")
	}
	if opts.Verbosity > 0 {
		args = append(args, "-"+strings.Repeat("v", opts.Verbosity))
	}
	return m.run(ctx, args...)
}

type managerInfo struct {
	EnvsDirs []string `json:"envs_dirs"`
}

// EnvDirectory locates the directory of an existing environment, or
// returns "" when the manager does not know it yet.
func (m *Manager) EnvDirectory(ctx context.Context, envName string) (string, error) {
	cmd := exec.CommandContext(ctx, m.Name, "info", "--json")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &models.ExternalToolError{Tool: m.Name, Args: []string{"info", "--json"}, ExitCode: exitErr.ExitCode()}
		}
		return "", fmt.Errorf("running %s info: %w", m.Name, err)
	}

	var info managerInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("parsing %s info output: %w", m.Name, err)
	}

	for _, dir := range info.EnvsDirs {
		env := filepath.Join(dir, envName)
		if fi, err := os.Stat(filepath.Join(env, "conda-meta")); err == nil && fi.IsDir() {
			return filepath.Clean(env), nil
		}
	}
	return "", nil
}
