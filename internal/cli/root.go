// Package cli wires the pipeline together: parse flags, resolve and merge
// the descriptor graph, emit the environment file and activation scripts,
// and delegate environment creation to the external manager.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devenv-tools/devenv/internal/config"
	"github.com/devenv-tools/devenv/internal/envmgr"
	"github.com/devenv-tools/devenv/internal/models"
	"github.com/devenv-tools/devenv/internal/version"
)

type options struct {
	file        string
	name        string
	print       bool
	printFull   bool
	noPrune     bool
	outputFile  string
	quiet       bool
	envVars     []string
	verbosity   int
	showVersion bool
	envManager  string
	lock        bool
	useLocks    string
	updateLocks []string
}

// NewRootCommand builds the devenv command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "devenv",
		Short:         "Work with multiple conda-environment-like yaml files in dev mode",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "environment.devenv.yml", "the environment.devenv.yml file to process")
	flags.StringVarP(&opts.name, "name", "n", "", "name of environment")
	flags.BoolVar(&opts.print, "print", false, "print the rendered file as will be sent to the manager and exit")
	flags.BoolVar(&opts.printFull, "print-full", false, "similar to --print, but also includes the 'environment' section")
	flags.BoolVar(&opts.noPrune, "no-prune", false, "don't pass --prune to the environment manager")
	flags.StringVar(&opts.outputFile, "output-file", "", "output filename")
	flags.BoolVar(&opts.quiet, "quiet", false, "do not show progress")
	flags.StringArrayVarP(&opts.envVars, "env-var", "e", nil, "define or override environment variables in the form VAR_NAME or VAR_NAME=VALUE")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "use once for info, twice for debug")
	flags.BoolVar(&opts.showVersion, "version", false, "show version and exit")
	flags.StringVarP(&opts.envManager, "env-manager", "m", "", "the environment manager to use (conda or mamba); defaults to the configured one")
	flags.BoolVar(&opts.lock, "lock", false, "create one or more lock files for the environment file")
	flags.StringVar(&opts.useLocks, "use-locks", "", "how to use lock files: auto, yes or no")
	flags.StringArrayVar(&opts.updateLocks, "update-locks", nil, "update the given package in all lock files; pass '' to update all packages")

	return cmd
}

// Execute runs the command and maps errors to exit codes: 2 for usage,
// parse, merge and cycle errors, the tool's own exit code for external
// failures, 1 otherwise.
func Execute(ctx context.Context) int {
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "%s\n", color.RedString("ERROR: %s", err))

	switch models.Classify(err) {
	case models.ErrParse, models.ErrCycle, models.ErrMerge, models.ErrConfig:
		return 2
	case models.ErrExternalTool:
		var toolErr *models.ExternalToolError
		if errors.As(err, &toolErr) && toolErr.ExitCode > 0 {
			return toolErr.ExitCode
		}
		return 1
	}
	return 1
}

func run(ctx context.Context, opts *options) error {
	if opts.showVersion {
		fmt.Printf("devenv version %s\n", version.Version)
		return nil
	}

	setupLogging(opts.verbosity)

	for name, value := range ParseEnvVarArgs(opts.envVars) {
		os.Setenv(name, value)
	}

	settings, err := config.Resolve()
	if err != nil {
		return err
	}
	if opts.envManager != "" {
		settings.EnvManager = opts.envManager
	}
	if opts.useLocks != "" {
		settings.UseLocks = opts.useLocks
	}

	mgr, err := envmgr.Resolve(settings.EnvManager)
	if err != nil {
		return err
	}
	mgr.Quiet = opts.quiet

	if _, err := os.Stat(opts.file); err != nil {
		return &models.ConfigError{
			Msg:  fmt.Sprintf("file %q does not exist", opts.file),
			Hint: "pass the environment file with --file",
		}
	}

	if opts.print || opts.printFull {
		return printRendered(opts)
	}

	if opts.lock || len(opts.updateLocks) > 0 {
		return createLockFiles(ctx, mgr, opts)
	}

	if isDevenvFile(opts.file) && settings.UseLocks != config.UseLocksNo {
		err := consumeLockFile(ctx, mgr, opts)
		var notFound *envmgr.LockFileNotFoundError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &notFound):
			if settings.UseLocks == config.UseLocksYes {
				return &models.ConfigError{
					Msg:  fmt.Sprintf("lock file %s not found and --use-locks=yes", notFound.LockFile),
					Hint: "create it first with --lock",
				}
			}
			// Fall back to a plain environment update.
		default:
			return err
		}
	}

	return updateEnvironment(ctx, mgr, opts)
}

func isDevenvFile(path string) bool {
	return strings.HasSuffix(path, ".devenv.yml")
}

func setupLogging(verbosity int) {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
