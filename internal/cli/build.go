package cli

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/cruciblehq/forge/internal/build"
)

// Represents the 'forge build' command.
type BuildCmd struct {
	Dir    string            `arg:"" optional:"" default:"." type:"existingdir" help:"Recipe directory."`
	Option map[string]string `short:"o" mapsep:"none" help:"Build option passed to the build action. Repeatable." placeholder:"KEY=VALUE"`
	Force  bool              `short:"f" help:"Build even when the recipe is up to date."`
}

// Executes the build command.
//
// Options saved by the previous build are reused, with --option values
// taking precedence. The result archive path is printed on success.
func (c *BuildCmd) Run(ctx context.Context) (err error) {
	s, err := openSession(c.Dir)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	status, err := s.task.Status(ctx)
	if err != nil {
		return err
	}

	switch {
	case status == build.StatusLocked:
		return build.ErrLocked
	case status == build.StatusUpToDate && !c.Force:
		slog.Info("recipe is up to date", "recipe", s.recipe.Name)
		return nil
	}

	opts := (&build.OptionsStore{Path: s.recipe.OptionsFile()}).Load()
	maps.Copy(opts, c.Option)
	s.task.Options = opts

	if err := s.task.Run(ctx); err != nil {
		if build.IsBuildFailure(err) {
			slog.Error("build action failed", "log", s.recipe.BuildLog())
		}
		return err
	}

	fmt.Println(s.recipe.ResultArchive())
	return nil
}
