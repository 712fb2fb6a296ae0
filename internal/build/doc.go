// Package build coordinates builds of a recipe inside a build environment.
//
// A [Task] ties together a recipe, its [environment.Environment], the
// recipe lock and an activity probe. [Task.Status] answers whether a build
// is needed without touching the environment. [Task.Run] performs one
// build under the lock: up, provision, the build [Job], result retrieval
// through an [Archiver], and the checksum record, with halt and lock
// release on every exit path.
//
// Build options are a flat string mapping persisted next to the recipe by
// an [OptionsStore] and passed to the build action as environment
// variables.
//
// Example usage:
//
//	task := build.NewTask(r, env, store, probe)
//
//	status, err := task.Status(ctx)
//	if err != nil {
//	    return err
//	}
//	if status != build.StatusBuildRequired {
//	    return nil
//	}
//
//	task.Options = build.Options{"variant": "release"}
//	if err := task.Run(ctx); err != nil {
//	    return err
//	}
package build
