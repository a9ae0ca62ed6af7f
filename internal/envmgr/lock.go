package envmgr

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/devenv-tools/devenv/internal/platform"
)

// LockPaths returns the per-platform lock file pair for a source
// descriptor: the rendered base environment file fed to the locking tool,
// and the lock file the tool produces.
func LockPaths(source, envName string, plat platform.Platform) (base, target string) {
	dir := filepath.Dir(source)
	base = filepath.Join(dir, fmt.Sprintf(".%s.%s.lock_environment.yml", envName, plat))
	target = filepath.Join(dir, fmt.Sprintf(".%s.%s.conda-lock.yml", envName, plat))
	return base, target
}

// Lock runs the locking tool for one platform. Updates restricts the
// refresh to the named packages; an empty entry updates everything.
func (m *Manager) Lock(ctx context.Context, baseFile string, plat platform.Platform, lockFile string, updates []string) error {
	args := []string{"lock", "--file", baseFile, "--platform", string(plat), "--lockfile", lockFile}
	for _, pkg := range updates {
		args = append(args, "--update", pkg)
	}
	return m.run(ctx, args...)
}

// LockInstall creates or updates an environment from an existing lock
// file. A missing lock file is reported as a LockFileNotFoundError so
// callers can fall back per policy.
func (m *Manager) LockInstall(ctx context.Context, envName, lockFile string) error {
	return m.run(ctx, "lock", "install", "--name", envName, lockFile)
}

// LockFileNotFoundError reports an attempt to consume a lock file that
// does not exist.
type LockFileNotFoundError struct {
	LockFile string
}

func (e *LockFileNotFoundError) Error() string {
	return fmt.Sprintf("required lock file %s not found", e.LockFile)
}
