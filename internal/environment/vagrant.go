package environment

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/forge/internal/config"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
)

// VM managed by the vagrant command line, with the Vagrantfile in the
// recipe directory.
type Vagrant struct {
	Recipe  *recipe.Recipe // Recipe being built.
	Program string         // Vagrant executable.
	Shell   remote.Shell   // Shell on the VM, over the forwarded SSH port.
}

// Creates a vagrant environment. The transport names the SSH client used
// to reach the VM.
func NewVagrant(r *recipe.Recipe, cfg config.Vagrant, transport string) (*Vagrant, error) {
	shell, err := remote.NewShell(remote.Transport(transport), remote.Target{
		Host:       cfg.Host,
		User:       cfg.User,
		Port:       cfg.Port,
		PrivateKey: cfg.PrivateKey,
	})
	if err != nil {
		return nil, err
	}

	program := cfg.Program
	if program == "" {
		program = "vagrant"
	}

	return &Vagrant{Recipe: r, Program: program, Shell: shell}, nil
}

// Boots the VM without running its provisioners.
func (v *Vagrant) Up(ctx context.Context) error {
	return v.vagrant(ctx, "up", "--no-provision")
}

// Runs the Vagrantfile provisioners, then the recipe's provision action.
func (v *Vagrant) Provision(ctx context.Context) error {
	if err := v.vagrant(ctx, "provision"); err != nil {
		return err
	}
	if v.Recipe.Provision == "" {
		return nil
	}
	return v.Shell.Command(v.Recipe.Provision).Run(ctx, nil, nil)
}

// Forces the VM off. Halting a VM that never booted is not an error for
// vagrant, so this is safe after a failed Up.
func (v *Vagrant) Halt(ctx context.Context) error {
	return v.vagrant(ctx, "halt", "--force")
}

func (v *Vagrant) IsBusy(ctx context.Context) (bool, error) {
	return isBusy(ctx, v.Shell, v.Recipe.Build)
}

func (v *Vagrant) Lockfile() string {
	return v.Recipe.Lockfile()
}

func (v *Vagrant) Command(action string) remote.Command {
	return v.Shell.Command(action)
}

// Runs a vagrant subcommand in the recipe directory.
func (v *Vagrant) vagrant(ctx context.Context, args ...string) error {
	cmd := &remote.ExecCommand{Name: v.Program, Args: args, Dir: v.Recipe.Dir}
	slog.Debug("running vagrant", "command", cmd.String())
	return cmd.Run(ctx, nil, nil)
}
