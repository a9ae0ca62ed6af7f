package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/devenv-tools/devenv/internal/descriptor"
	"github.com/devenv-tools/devenv/internal/emit"
	"github.com/devenv-tools/devenv/internal/envmgr"
	"github.com/devenv-tools/devenv/internal/merge"
	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
)

// process resolves the include graph of a descriptor for one platform and
// merges it.
func process(file string, plat platform.Platform) (*models.MergedEnvironment, error) {
	descriptors, err := descriptor.Resolve(file, plat)
	if err != nil {
		return nil, err
	}
	return merge.Merge(descriptors)
}

// printRendered implements --print and --print-full.
func printRendered(opts *options) error {
	if !isDevenvFile(opts.file) {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", opts.file, err)
		}
		fmt.Print(string(data))
		return nil
	}

	merged, err := process(opts.file, platform.Current())
	if err != nil {
		return err
	}

	name := merged.Name
	if opts.name != "" {
		name = opts.name
	}
	rendered, err := emit.EnvironmentFile(merged, name)
	if err != nil {
		return err
	}
	fmt.Print(rendered)

	if opts.printFull && len(merged.Environment) > 0 {
		section, err := emit.EnvironmentSection(merged.Environment)
		if err != nil {
			return err
		}
		fmt.Print(section)
	}
	return nil
}

// updateEnvironment renders the merged environment file, calls the
// manager, and writes the activation scripts.
func updateEnvironment(ctx context.Context, mgr *envmgr.Manager, opts *options) error {
	if !isDevenvFile(opts.file) {
		// Plain environment files go to the manager untouched.
		return mgr.EnvUpdate(ctx, envmgr.UpdateOptions{
			File:      opts.file,
			Name:      opts.name,
			Prune:     !opts.noPrune,
			Verbosity: opts.verbosity,
		})
	}

	merged, err := process(opts.file, platform.Current())
	if err != nil {
		return err
	}

	name, err := merged.RequireName(opts.name)
	if err != nil {
		return err
	}

	content, err := emit.EnvironmentFile(merged, name)
	if err != nil {
		return err
	}

	outputFile, err := deriveOutputFile(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputFile, err)
	}

	if err := mgr.EnvUpdate(ctx, envmgr.UpdateOptions{
		File:      outputFile,
		Name:      opts.name,
		Prune:     !opts.noPrune,
		Verbosity: opts.verbosity,
	}); err != nil {
		return err
	}

	return writeActivationScripts(ctx, mgr, name, merged.Environment)
}

// deriveOutputFile picks the rendered environment file path: the explicit
// --output-file, or the input with its ".devenv" extension stripped
// (environment.devenv.yml becomes environment.yml).
func deriveOutputFile(opts *options) (string, error) {
	if opts.outputFile != "" {
		return opts.outputFile, nil
	}

	base := strings.TrimSuffix(opts.file, ".yml")
	stripped := strings.TrimSuffix(base, ".devenv")
	if stripped == base || stripped == "" || strings.HasSuffix(stripped, string(filepath.Separator)) {
		return "", &models.ConfigError{
			Msg:  fmt.Sprintf("can't guess the output filename for %q", opts.file),
			Hint: "provide it with --output-file",
		}
	}
	return stripped + ".yml", nil
}

// writeActivationScripts emits the activate/deactivate pairs into the
// environment's etc/conda/{activate,deactivate}.d directories.
func writeActivationScripts(ctx context.Context, mgr *envmgr.Manager, envName string, env []models.EnvVar) error {
	envDir, err := mgr.EnvDirectory(ctx, envName)
	if err != nil {
		return err
	}
	if envDir == "" {
		return &models.ConfigError{
			Msg:  fmt.Sprintf("could not find directory of environment %q when trying to write activate scripts", envName),
			Hint: "it should have been created by now",
		}
	}

	activateDir := filepath.Join(envDir, "etc", "conda", "activate.d")
	deactivateDir := filepath.Join(envDir, "etc", "conda", "deactivate.d")
	for _, dir := range []string{activateDir, deactivateDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	for _, file := range emit.ScriptFiles(runtime.GOOS == "windows") {
		activate, err := emit.Activate(env, file.Shell)
		if err != nil {
			return err
		}
		deactivate, err := emit.Deactivate(env, file.Shell)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(activateDir, file.Name), []byte(activate), 0644); err != nil {
			return fmt.Errorf("writing activate script: %w", err)
		}
		if err := os.WriteFile(filepath.Join(deactivateDir, file.Name), []byte(deactivate), 0644); err != nil {
			return fmt.Errorf("writing deactivate script: %w", err)
		}
	}
	return nil
}

// ParseEnvVarArgs parses repeated --env-var arguments of the form
// "VAR_NAME" or "VAR_NAME=VALUE" into a map; a bare name maps to the
// empty string.
func ParseEnvVarArgs(args []string) map[string]string {
	envVars := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, _ := strings.Cut(arg, "=")
		envVars[name] = value
	}
	return envVars
}
