package environment

import (
	"context"
	"fmt"

	"github.com/cruciblehq/forge/internal/config"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
)

// Pre-existing build machine reached over SSH.
//
// The machine outlives every build, so Halt does nothing.
type Host struct {
	Recipe *recipe.Recipe // Recipe being built.
	Shell  remote.Shell   // Shell on the build machine.
}

// Creates a host environment from the SSH configuration.
func NewHost(r *recipe.Recipe, cfg config.SSH) (*Host, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host backend requires ssh.host", ErrEnvironment)
	}

	shell, err := remote.NewShell(remote.Transport(cfg.Transport), remote.Target{
		Host:       cfg.Host,
		User:       cfg.User,
		Port:       cfg.Port,
		PrivateKey: cfg.PrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironment, err)
	}

	return &Host{Recipe: r, Shell: shell}, nil
}

// Checks that the machine accepts commands.
func (h *Host) Up(ctx context.Context) error {
	return h.Shell.Command("true").Run(ctx, nil, nil)
}

// Runs the recipe's provision action, if any.
func (h *Host) Provision(ctx context.Context) error {
	if h.Recipe.Provision == "" {
		return nil
	}
	return h.Shell.Command(h.Recipe.Provision).Run(ctx, nil, nil)
}

func (h *Host) Halt(ctx context.Context) error {
	return nil
}

// Reports whether a process running the build action exists on the
// machine. The machine is shared, so the same action started for another
// recipe also counts as busy. The command line is all pgrep sees: the
// remote shell execs the action, so the options prefix is gone by then.
func (h *Host) IsBusy(ctx context.Context) (bool, error) {
	return isBusy(ctx, h.Shell, h.Recipe.Build)
}

func (h *Host) Lockfile() string {
	return h.Recipe.Lockfile()
}

func (h *Host) Command(action string) remote.Command {
	return h.Shell.Command(action)
}
