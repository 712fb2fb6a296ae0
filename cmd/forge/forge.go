package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/cruciblehq/forge/internal"
	"github.com/cruciblehq/forge/internal/build"
	"github.com/cruciblehq/forge/internal/cli"
)

// Exit code for a recipe locked by another build, so scripts can tell it
// apart from a failed build.
const exitLocked = 3

func main() {
	slog.SetDefault(bootstrapLogger())

	slog.Debug("starting", "build", internal.Info(), "pid", os.Getpid(), "args", os.Args)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(exitCode(err))
	}
}

// Maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, build.ErrLocked):
		return exitLocked
	default:
		return 1
	}
}

// Logger used until flags are parsed, honouring only the linker-provided
// modes. cli.Execute replaces it.
func bootstrapLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: internal.LogLevel()}))
}
