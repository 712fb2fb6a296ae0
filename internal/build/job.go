package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/cruciblehq/forge/internal/paths"
	"github.com/cruciblehq/forge/internal/remote"
)

// A single build attempt against one environment.
//
// A job is used once: Build, then Result.
type Job struct {
	ID        string       // Correlates log lines and build log entries.
	Shell     remote.Shell // Builds commands inside the environment.
	Action    string       // Recipe build action.
	Options   Options      // Passed to the action as environment variables.
	LogPath   string       // Build log, appended to.
	ResultDir string       // Directory inside the environment holding the output.
}

// Creates a job with a fresh ID.
func NewJob(shell remote.Shell, action string, opts Options, logPath, resultDir string) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Shell:     shell,
		Action:    action,
		Options:   opts,
		LogPath:   logPath,
		ResultDir: resultDir,
	}
}

// Runs the build action, appending its output to the build log.
//
// The log stays open for the whole run, which is what activity probes
// look for.
func (j *Job) Build(ctx context.Context) error {
	log, err := os.OpenFile(j.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, paths.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}
	defer log.Close()

	cmd := j.Shell.Command(j.command())
	fmt.Fprintf(log, "==> %s job %s: %s\n", time.Now().UTC().Format(time.RFC3339), j.ID, cmd.String())

	slog.Info("running build", "job", j.ID, "log", j.LogPath)

	if err := cmd.Run(ctx, log, log); err != nil {
		fmt.Fprintf(log, "==> job %s failed: %v\n", j.ID, err)
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	fmt.Fprintf(log, "==> job %s succeeded\n", j.ID)
	return nil
}

// Retrieves the result directory into the local file archive.
func (j *Job) Result(ctx context.Context, archive string) error {
	a := &Archiver{Shell: j.Shell}
	return a.Archive(ctx, j.ResultDir, archive)
}

// Returns the action prefixed with an env invocation carrying the options.
func (j *Job) command() string {
	if len(j.Options) == 0 {
		return j.Action
	}
	env := append([]string{"env"}, j.Options.Environ()...)
	return shellquote.Join(env...) + " " + j.Action
}
