package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/devenv-tools/devenv/internal/emit"
	"github.com/devenv-tools/devenv/internal/envmgr"
	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
)

// createLockFiles renders the environment once per declared platform and
// runs the locking tool on each result. Platforms are independent, so
// they lock in parallel.
func createLockFiles(ctx context.Context, mgr *envmgr.Manager, opts *options) error {
	if !isDevenvFile(opts.file) {
		return &models.ConfigError{
			Msg:  "locking requires a .devenv.yml file",
			Hint: "plain environment files are locked by the locking tool directly",
		}
	}

	merged, err := process(opts.file, platform.Current())
	if err != nil {
		return err
	}
	for _, key := range []struct {
		name   string
		values []string
	}{
		{"platforms", merged.Platforms},
		{"channels", merged.Channels},
	} {
		if len(key.values) == 0 {
			return &models.ConfigError{
				Msg:  fmt.Sprintf("locking requires key '%s' defined in the starting devenv file", key.name),
				Hint: "declare it in the root descriptor",
			}
		}
	}

	name, err := merged.RequireName(opts.name)
	if err != nil {
		return err
	}

	source, err := filepath.Abs(opts.file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.file, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, tag := range merged.Platforms {
		g.Go(func() error {
			plat, err := platform.Parse(tag)
			if err != nil {
				return &models.ConfigError{Msg: err.Error(), Hint: "check the 'platforms' key"}
			}

			platMerged, err := process(source, plat)
			if err != nil {
				return err
			}
			content, err := emit.EnvironmentFile(platMerged, name)
			if err != nil {
				return err
			}

			baseFile, lockFile := envmgr.LockPaths(source, name, plat)
			header := fmt.Sprintf("# Generated by devenv locking support for env %s platform %s\n", name, plat)
			if err := os.WriteFile(baseFile, []byte(header+content), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", baseFile, err)
			}

			if !opts.quiet {
				verb := "Updating"
				if _, err := os.Stat(lockFile); err != nil {
					verb = "Creating"
				}
				fmt.Printf("%s lock files for %s platform %s\n",
					color.BlueString(verb), color.MagentaString(name), color.GreenString(string(plat)))
			}

			return mgr.Lock(ctx, baseFile, plat, lockFile, opts.updateLocks)
		})
	}
	return g.Wait()
}

// consumeLockFile creates or updates the environment from an existing
// lock file for the current platform.
func consumeLockFile(ctx context.Context, mgr *envmgr.Manager, opts *options) error {
	plat := platform.Current()
	merged, err := process(opts.file, plat)
	if err != nil {
		return err
	}

	// The lock file path is derived from the declared name; the install
	// target may still be overridden.
	declaredName, err := merged.RequireName("")
	if err != nil {
		return err
	}

	source, err := filepath.Abs(opts.file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.file, err)
	}
	_, lockFile := envmgr.LockPaths(source, declaredName, plat)
	if _, err := os.Stat(lockFile); err != nil {
		return &envmgr.LockFileNotFoundError{LockFile: lockFile}
	}

	name, err := merged.RequireName(opts.name)
	if err != nil {
		return err
	}

	if !opts.quiet {
		fmt.Printf("%s env %s platform %s using lockfile\n",
			color.BlueString("Updating"), color.MagentaString(name), color.GreenString(string(plat)))
	}

	if err := mgr.LockInstall(ctx, name, lockFile); err != nil {
		return err
	}
	return writeActivationScripts(ctx, mgr, name, merged.Environment)
}
