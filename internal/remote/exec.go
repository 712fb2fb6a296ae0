package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// Shell that runs actions through the local ssh client.
type OpenSSH struct {
	Target  Target // Endpoint to connect to.
	Program string // Client executable. Empty uses "ssh" from PATH.
}

// Returns the ssh invocation for action.
func (s *OpenSSH) Command(action string) Command {
	args := s.Target.Args(action)
	if s.Program != "" {
		args[0] = s.Program
	}
	return &ExecCommand{Name: args[0], Args: args[1:]}
}

// Command executed as a local process.
type ExecCommand struct {
	Name string   // Executable.
	Args []string // Arguments, excluding the executable.
	Dir  string   // Working directory. Empty uses the current directory.
}

// Runs the process and waits for it to exit.
func (c *ExecCommand) Run(ctx context.Context, stdout, stderr io.Writer) error {
	var captured bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	cmd.Stderr = capture(stderr, &captured)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Command: c.String(),
			Code:    exitErr.ExitCode(),
			Stderr:  captured.String(),
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, c.Name, err)
}

// Returns the command line, shell-quoted.
func (c *ExecCommand) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Args...)...)
}
