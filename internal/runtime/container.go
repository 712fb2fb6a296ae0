package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Lifecycle state of a build container.
type State string

const (
	StateAbsent  State = "absent"  // No container with the ID exists.
	StateStopped State = "stopped" // Container exists, its task does not run.
	StateRunning State = "running" // Task is running; commands can be attached.
)

// Handle on a build container, resolved by ID on every call.
type Container struct {
	client   *containerd.Client // Client the container lives in.
	id       string             // Containerd container ID.
	platform string             // OCI platform, e.g. "linux/amd64".
}

// Returns the container ID.
func (c *Container) ID() string {
	return c.id
}

// Reports the container's lifecycle state.
func (c *Container) State(ctx context.Context) (State, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if errdefs.IsNotFound(err) {
		return StateAbsent, nil
	} else if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if errdefs.IsNotFound(err) {
		return StateStopped, nil
	} else if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if status.Status != containerd.Running {
		return StateStopped, nil
	}
	return StateRunning, nil
}

// Kills the task and removes the container with its snapshot. Destroying
// an absent container is not an error.
func (c *Container) Destroy(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if errdefs.IsNotFound(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := discard(ctx, ctr); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container destroyed", "id", c.id)
	return nil
}

// Creates the container with a fresh snapshot of image and starts its
// placeholder task, which sleeps so that build commands have a task to
// attach to.
func (c *Container) start(ctx context.Context, image containerd.Image) error {
	ctr, err := c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
	if err != nil {
		return err
	}

	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err == nil {
		if err = task.Start(ctx); err != nil {
			task.Delete(ctx)
		}
	}
	if err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return err
	}
	return nil
}

// Removes a container left over under this ID by an interrupted build.
func (c *Container) clear(ctx context.Context) {
	if ctr, err := c.client.LoadContainer(ctx, c.id); err == nil {
		if err := discard(ctx, ctr); err != nil {
			slog.Warn("failed to remove stale container", "id", c.id, "error", err)
		}
	}
}

// Kills ctr's task, if any, and deletes ctr with its snapshot.
func discard(ctx context.Context, ctr containerd.Container) error {
	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}
	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	return nil
}
