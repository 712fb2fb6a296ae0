package build

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/kballard/go-shellquote"

	"github.com/cruciblehq/forge/internal/paths"
	"github.com/cruciblehq/forge/internal/remote"
)

// Retrieves a directory from a build environment as a tar archive.
type Archiver struct {
	Shell remote.Shell // Builds commands inside the environment.
}

// Archives resultDir into the local file filename.
//
// The remote tar output is streamed straight into the file. On failure the
// file is removed and a [*ResultRetrievalError] carrying the remote stderr
// is returned.
func (a *Archiver) Archive(ctx context.Context, resultDir, filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, paths.DefaultFileMode)
	if err != nil {
		return &ResultRetrievalError{Err: err}
	}

	cmd := a.Shell.Command(shellquote.Join("tar", "-C", resultDir, "-c", "."))
	slog.Debug("archiving result", "command", cmd.String(), "file", filename)

	var stderr bytes.Buffer
	runErr := cmd.Run(ctx, f, &stderr)
	closeErr := f.Close()

	if runErr == nil && closeErr == nil {
		return nil
	}

	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove partial archive", "file", filename, "error", err)
	}

	if runErr == nil {
		return &ResultRetrievalError{Err: closeErr}
	}

	diagnostic := stderr.String()
	var exitErr *remote.ExitError
	if errors.As(runErr, &exitErr) {
		diagnostic = exitErr.Stderr
	}
	return &ResultRetrievalError{Stderr: diagnostic, Err: runErr}
}
