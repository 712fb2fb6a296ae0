package cli

import (
	"context"
	"errors"
	"log/slog"
)

var ErrBuildInProgress = errors.New("build in progress")

// Represents the 'forge unlock' command.
type UnlockCmd struct {
	Dir   string `arg:"" optional:"" default:"." type:"existingdir" help:"Recipe directory."`
	Force bool   `short:"f" help:"Unlock even if a build appears to be running."`
}

// Executes the unlock command.
//
// Locks survive the death of the process that set them. This clears one,
// refusing while the build log is held open unless forced.
func (c *UnlockCmd) Run(ctx context.Context) (err error) {
	s, err := openSession(c.Dir)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	locked, err := s.task.Lock.IsLocked(ctx)
	if err != nil {
		return err
	}
	if !locked {
		slog.Info("recipe is not locked", "recipe", s.recipe.Name)
		return nil
	}

	if !c.Force && s.task.IsBuilding(ctx) {
		return ErrBuildInProgress
	}

	return s.task.Lock.ForceRelease(ctx)
}
