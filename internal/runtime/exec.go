package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

var execCounter atomic.Uint64

// Returns a process ID unique within this forge process.
func execID() string {
	return fmt.Sprintf("forge-exec-%d", execCounter.Add(1))
}

// Process to attach to the container's running task.
type execRequest struct {
	args    []string  // Argument vector, args[0] being the executable.
	workdir string    // Working directory. Empty keeps the image default.
	stdin   io.Reader // Optional input.
	stdout  io.Writer // Optional output sink.
	stderr  io.Writer // Optional error sink.
}

// Runs a command inside the container and returns its exit code.
//
// The command is interpreted by shell ("shell -c command"). Output is
// streamed to stdout and stderr while the process runs; nil writers discard
// it. The process inherits the image environment. A non-zero exit code is
// not an error.
func (c *Container) Exec(ctx context.Context, shell, command, workdir string, stdout, stderr io.Writer) (int, error) {
	return c.run(ctx, execRequest{
		args:    []string{shell, "-c", command},
		workdir: workdir,
		stdout:  stdout,
		stderr:  stderr,
	})
}

// Runs args and fails unless the process exits zero. desc names the
// operation in the error, together with the process stderr.
func (c *Container) mustRun(ctx context.Context, desc string, stdin io.Reader, args ...string) error {
	var stderr bytes.Buffer
	code, err := c.run(ctx, execRequest{args: args, stdin: stdin, stderr: &stderr})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%w: %s exited with code %d: %s", ErrRuntime, desc, code, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Attaches req to the container's task as an extra process and waits for
// it to exit.
func (c *Container) run(ctx context.Context, req execRequest) (int, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	pspec, err := processSpec(ctx, ctr, req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	stdout, stderr := req.stdout, req.stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var eof *eofReader
	stdin := req.stdin
	if stdin != nil {
		eof = newEOFReader(stdin)
		stdin = eof
	}

	process, err := task.Exec(ctx, execID(), pspec, cio.NewCreator(cio.WithStreams(stdin, stdout, stderr)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer process.Delete(ctx)

	exited, err := process.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := process.Start(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	// The shim keeps both ends of the stdin FIFO open, so EOF reaches the
	// process only through an explicit close.
	if eof != nil {
		go func() {
			<-eof.Done()
			process.CloseIO(ctx, containerd.WithStdinCloser)
		}()
	}

	code, _, err := (<-exited).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return int(code), nil
}

// Derives the process spec for req from the container's own spec.
func processSpec(ctx context.Context, ctr containerd.Container, req execRequest) (*specs.Process, error) {
	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	p := *spec.Process
	p.Terminal = false
	p.Args = req.args
	if req.workdir != "" {
		p.Cwd = req.workdir
	}
	return &p, nil
}
