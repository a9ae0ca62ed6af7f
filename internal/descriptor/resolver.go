package descriptor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/platform"
)

// Resolve loads the root descriptor and, depth-first in declared order,
// every descriptor it transitively includes. The returned sequence is the
// merge traversal order: within each descriptor its includes come first,
// the descriptor itself last, so included files act as ancestors of the
// file that includes them. Descriptors reachable through more than one
// include path are loaded once, keyed by canonical file path. Cycles fail
// with a CycleError naming the chain.
func Resolve(rootPath string, plat platform.Platform) ([]*models.Descriptor, error) {
	r := &resolver{
		platform: plat,
		visited:  make(map[string]bool),
	}
	return r.load(rootPath, false, nil)
}

type resolver struct {
	platform platform.Platform
	visited  map[string]bool // canonical paths already merged into the traversal
}

func (r *resolver) load(path string, isIncluded bool, stack []string) ([]*models.Descriptor, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	for _, ancestor := range stack {
		if ancestor == canon {
			chain := append(append([]string{}, stack...), canon)
			return nil, &models.CycleError{Chain: chain}
		}
	}
	if r.visited[canon] {
		slog.Debug("descriptor already merged, skipping", "path", canon)
		return nil, nil
	}
	r.visited[canon] = true

	d, err := Load(canon, r.platform, isIncluded)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded descriptor", "path", canon, "includes", len(d.Includes))

	stack = append(stack, canon)
	var out []*models.Descriptor
	for _, inc := range d.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			// Includes resolve relative to the declaring file, not the
			// working directory.
			incPath = filepath.Join(filepath.Dir(canon), incPath)
		}
		if _, err := os.Stat(incPath); err != nil {
			return nil, &models.ParseError{
				File: canon,
				Err:  fmt.Errorf("couldn't find the included file %q: %w", inc, err),
			}
		}
		sub, err := r.load(incPath, true, stack)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}

	return append(out, d), nil
}

// canonicalPath is the deduplication key for a descriptor file: absolute,
// cleaned, and with symlinks resolved when the file exists.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}
