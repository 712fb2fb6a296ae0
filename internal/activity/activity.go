package activity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	ErrProbeUnavailable = errors.New("activity probe unavailable")
	ErrUnknownProbe     = errors.New("unknown activity probe")
)

// Names a probe implementation.
type Kind string

const (
	KindProcess Kind = "process" // Scan open files of all processes.
	KindFuser   Kind = "fuser"   // Ask the fuser(1) utility.
)

// Reports whether some process holds a file open.
type Probe interface {
	IsBuilding(ctx context.Context, logPath string) (bool, error)
}

// Returns the probe for kind. An empty kind selects [KindProcess].
func New(kind Kind) (Probe, error) {
	switch kind {
	case "", KindProcess:
		return &Process{}, nil
	case KindFuser:
		return &Fuser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProbe, kind)
	}
}

// Probe that runs fuser(1) against the log file.
//
// fuser exits zero when at least one process uses the file and one when
// none does, including when the file does not exist.
type Fuser struct {
	Program string // Executable to run. Empty uses "fuser" from PATH.
}

// Runs fuser on logPath.
func (f *Fuser) IsBuilding(ctx context.Context, logPath string) (bool, error) {
	program := f.Program
	if program == "" {
		program = "fuser"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, logPath)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s exited with %d: %s", ErrProbeUnavailable, program, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	}
	return false, fmt.Errorf("%w: %w", ErrProbeUnavailable, err)
}

// Probe that walks the open file tables of all visible processes.
//
// Processes whose file table cannot be read, typically those of other
// users, are skipped.
type Process struct{}

// Scans all processes for an open handle on logPath.
func (p *Process) IsBuilding(ctx context.Context, logPath string) (bool, error) {
	target, err := canonical(logPath)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeUnavailable, err)
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeUnavailable, err)
	}

	for _, proc := range procs {
		files, err := proc.OpenFilesWithContext(ctx)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.Path == target {
				return true, nil
			}
		}
	}
	return false, nil
}

// Returns the absolute, symlink-free form of path. A path that does not
// exist is returned in absolute form.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
