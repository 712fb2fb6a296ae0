package environment

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cruciblehq/forge/internal/config"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
	"github.com/cruciblehq/forge/internal/runtime"
)

const (

	// Directory inside the container holding the recipe sources. Commands
	// run with it as working directory.
	SourceDir = "/src"

	// Shell used to interpret actions inside the container.
	containerShell = "/bin/sh"
)

// Ephemeral container started from the recipe's OCI archive.
type Containerd struct {
	Recipe    *recipe.Recipe // Recipe being built.
	Address   string         // Containerd socket.
	Namespace string         // Containerd namespace.
	ID        string         // Container ID, unique per instance.

	rt  *runtime.Runtime   // Set by Up.
	ctr *runtime.Container // Set once the container has started.
}

// Creates a containerd environment. Nothing is contacted until Up.
func NewContainerd(r *recipe.Recipe, cfg config.Containerd) *Containerd {
	return &Containerd{
		Recipe:    r,
		Address:   cfg.Address,
		Namespace: cfg.Namespace,
		ID:        "forge-" + uuid.NewString(),
	}
}

// Connects to containerd and starts the build container.
func (c *Containerd) Up(ctx context.Context) error {
	if c.rt == nil {
		rt, err := runtime.New(c.Address, c.Namespace)
		if err != nil {
			return err
		}
		c.rt = rt
	}

	ctr, err := c.rt.StartContainer(ctx, c.Recipe.Image, c.ID, c.Recipe.Platform)
	if err != nil {
		return err
	}
	c.ctr = ctr
	return nil
}

// Copies the recipe sources into [SourceDir] and runs the recipe's
// provision action, if any.
func (c *Containerd) Provision(ctx context.Context) error {
	if c.ctr == nil {
		return ErrNotUp
	}

	if err := c.ctr.MkdirAll(ctx, SourceDir); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(c.Recipe.WriteSources(pw))
	}()
	err := c.ctr.CopyTo(ctx, pr, SourceDir)
	pr.Close()
	if err != nil {
		return err
	}

	if c.Recipe.Provision == "" {
		return nil
	}
	return c.Command(c.Recipe.Provision).Run(ctx, nil, nil)
}

// Destroys the container and closes the containerd connection. Either may
// be absent after a failed Up.
func (c *Containerd) Halt(ctx context.Context) error {
	var result *multierror.Error

	if c.rt != nil {
		// StartContainer may fail after creating the container, so destroy by
		// ID even when no handle was returned.
		ctr := c.ctr
		if ctr == nil {
			ctr = c.rt.Container(c.ID, c.Recipe.Platform)
		}
		if err := ctr.Destroy(ctx); err != nil {
			result = multierror.Append(result, err)
		}
		if err := c.rt.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %w", runtime.ErrRuntime, err))
		}
	}

	c.ctr = nil
	c.rt = nil
	return result.ErrorOrNil()
}

// Reports whether the build action runs inside this instance's container.
// A container that is not up is idle.
func (c *Containerd) IsBusy(ctx context.Context) (bool, error) {
	if c.ctr == nil {
		return false, nil
	}

	state, err := c.ctr.State(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBusyCheck, err)
	}
	if state != runtime.StateRunning {
		return false, nil
	}
	return isBusy(ctx, commandShell{c}, c.Recipe.Build)
}

func (c *Containerd) Lockfile() string {
	return c.Recipe.Lockfile()
}

func (c *Containerd) Command(action string) remote.Command {
	return &containerCommand{env: c, action: action}
}

// Adapts the environment to [remote.Shell].
type commandShell struct {
	env *Containerd
}

func (s commandShell) Command(action string) remote.Command {
	return s.env.Command(action)
}

// Action executed through the shell inside the build container.
type containerCommand struct {
	env    *Containerd
	action string
}

func (cc *containerCommand) Run(ctx context.Context, stdout, stderr io.Writer) error {
	if cc.env.ctr == nil {
		return ErrNotUp
	}

	var captured bytes.Buffer
	if stderr == nil {
		stderr = &captured
	} else {
		stderr = io.MultiWriter(stderr, &captured)
	}

	code, err := cc.env.ctr.Exec(ctx, containerShell, cc.action, SourceDir, stdout, stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return &remote.ExitError{
			Command: cc.String(),
			Code:    code,
			Stderr:  captured.String(),
		}
	}
	return nil
}

func (cc *containerCommand) String() string {
	return cc.env.ID + ": " + cc.action
}
