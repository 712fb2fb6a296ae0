package environment

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/kballard/go-shellquote"

	"github.com/cruciblehq/forge/internal/config"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
)

// Execution context a build runs in.
//
// Lifecycle: created, Up, Provision, then any number of commands, then
// Halt. Errors from the backend are returned as is.
type Environment interface {

	// Allocates or starts the execution context. Required before Provision.
	Up(ctx context.Context) error

	// Applies recipe-specific setup. Required before a build runs.
	Provision(ctx context.Context) error

	// Tears the context down, releasing whatever a partial Up or Provision
	// acquired. Safe to call in any state.
	Halt(ctx context.Context) error

	// Reports whether the build action is currently running inside the
	// environment. Returns an error wrapping [ErrBusyCheck] when that
	// cannot be determined.
	IsBusy(ctx context.Context) (bool, error)

	// Returns the path the recipe lock key is derived from. Unique per
	// recipe and stable across invocations.
	Lockfile() string

	// Returns a command that runs action inside the environment.
	Command(action string) remote.Command
}

// Creates the environment named by the recipe's backend.
func New(r *recipe.Recipe, cfg *config.Config) (Environment, error) {
	switch r.Backend {
	case recipe.BackendHost:
		return NewHost(r, cfg.SSH)
	case recipe.BackendVagrant:
		return NewVagrant(r, cfg.Vagrant, cfg.SSH.Transport)
	case recipe.BackendContainerd:
		return NewContainerd(r, cfg.Containerd), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, r.Backend)
	}
}

// Runs pgrep for action through shell.
//
// pgrep exits 0 when a process matches and 1 when none does; any other
// outcome means the check could not be made. Any process with the same
// command line matches, whichever recipe started it.
func isBusy(ctx context.Context, shell remote.Shell, action string) (bool, error) {
	cmd := shell.Command(shellquote.Join("pgrep", "-f", pgrepPattern(action)))

	err := cmd.Run(ctx, nil, nil)
	if err == nil {
		return true, nil
	}

	var exitErr *remote.ExitError
	if errors.As(err, &exitErr) && exitErr.Code == 1 {
		return false, nil
	}
	return false, fmt.Errorf("%w: %w", ErrBusyCheck, err)
}

// Returns a pattern matching action literally that does not match the
// command line of the shell running pgrep itself. The first character is
// wrapped in a bracket expression, so the pattern text differs from what
// it matches.
func pgrepPattern(action string) string {
	if action == "" {
		return ""
	}
	switch c := action[0]; c {
	case '\\', ']', '^', '[':
		return regexp.QuoteMeta(action)
	default:
		return "[" + string(c) + "]" + regexp.QuoteMeta(action[1:])
	}
}
