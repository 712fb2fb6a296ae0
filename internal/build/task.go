package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/cruciblehq/forge/internal/activity"
	"github.com/cruciblehq/forge/internal/environment"
	"github.com/cruciblehq/forge/internal/lock"
	"github.com/cruciblehq/forge/internal/recipe"
)

// Coordinates builds of one recipe.
type Task struct {
	Recipe  *recipe.Recipe          // Recipe to build.
	Env     environment.Environment // Environment the build runs in.
	Lock    *lock.Manager           // Lock keyed by the environment's lockfile.
	Probe   activity.Probe          // Detects builds holding the log open.
	Options Options                 // Build options for the next run.
}

// Creates a task whose lock is derived from the environment's lockfile.
func NewTask(r *recipe.Recipe, env environment.Environment, store lock.Store, probe activity.Probe) *Task {
	return &Task{
		Recipe:  r,
		Env:     env,
		Lock:    lock.NewManager(store, env.Lockfile()),
		Probe:   probe,
		Options: Options{},
	}
}

// Resolves the build status without touching the environment.
func (t *Task) Status(ctx context.Context) (Status, error) {
	return ResolveStatus(ctx, t.Lock, t.Recipe)
}

// Reports whether a build of the recipe is in flight.
//
// The activity probe is asked first and its answer is final. When it
// cannot decide, the failure is logged and the environment's own busy
// check is consulted, failures of which are logged too and count as not
// building. That check matches the build action by command line, so on a
// shared host it may also see other recipes' builds.
func (t *Task) IsBuilding(ctx context.Context) bool {
	if t.Probe != nil {
		building, err := t.Probe.IsBuilding(ctx, t.Recipe.BuildLog())
		if err == nil {
			return building
		}
		slog.Warn("activity probe failed", "log", t.Recipe.BuildLog(), "error", err)
	}

	busy, err := t.Env.IsBusy(ctx)
	if err != nil {
		slog.Warn("busy check failed", "recipe", t.Recipe.Name, "error", err)
		return false
	}
	return busy
}

// Builds the recipe.
//
// Fails with [ErrLocked] if another process holds the lock. Otherwise the
// lock is set, the options are saved, and the steps run in order: up,
// provision, build, result archive, checksum record. Halt runs exactly
// once and the lock is released on every exit path, including cancellation
// of ctx. Errors from the environment are returned unchanged; cleanup
// failures are appended to them.
func (t *Task) Run(ctx context.Context) (err error) {
	locked, err := t.Lock.IsLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return ErrLocked
	}

	if err := t.Recipe.EnsureMeta(); err != nil {
		return err
	}

	if err := t.Lock.SetLock(ctx); err != nil {
		return err
	}

	slog.Info("lock acquired", "recipe", t.Recipe.Name, "key", int(t.Lock.Key()))

	defer func() {
		err = t.cleanup(context.WithoutCancel(ctx), err)
	}()

	// The options file is read by whichever build holds the lock.
	store := &OptionsStore{Path: t.Recipe.OptionsFile()}
	if err := store.Save(t.Options); err != nil {
		return err
	}

	return t.run(ctx)
}

// Runs the build steps in order, stopping at the first failure.
func (t *Task) run(ctx context.Context) error {
	slog.Info("starting environment", "recipe", t.Recipe.Name, "backend", t.Recipe.Backend)
	if err := t.Env.Up(ctx); err != nil {
		return err
	}

	slog.Info("provisioning environment", "recipe", t.Recipe.Name)
	if err := t.Env.Provision(ctx); err != nil {
		return err
	}

	job := NewJob(t.Env, t.Recipe.Build, t.Options, t.Recipe.BuildLog(), t.Recipe.Result)
	if err := job.Build(ctx); err != nil {
		return err
	}

	slog.Info("retrieving result", "job", job.ID, "archive", t.Recipe.ResultArchive())
	if err := job.Result(ctx, t.Recipe.ResultArchive()); err != nil {
		return err
	}

	return t.Recipe.WriteChecksum()
}

// Halts the environment and releases the lock, combining failures with
// err. A lone err is returned as is.
func (t *Task) cleanup(ctx context.Context, err error) error {
	var errs []error

	slog.Info("halting environment", "recipe", t.Recipe.Name)
	if haltErr := t.Env.Halt(ctx); haltErr != nil {
		errs = append(errs, haltErr)
	}

	if releaseErr := t.Lock.ReleaseLock(ctx); releaseErr != nil {
		errs = append(errs, releaseErr)
	} else {
		slog.Info("lock released", "recipe", t.Recipe.Name)
	}

	if len(errs) == 0 {
		return err
	}
	if err == nil && len(errs) == 1 {
		return errs[0]
	}

	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, err)
	}
	return multierror.Append(result, errs...)
}

// Interval at which a followed build log is checked for new output.
var logPollInterval = 500 * time.Millisecond

// Copies the build log to w.
//
// With follow set, output appended to the log keeps being copied while the
// recipe lock is held, and once more after it is released. Cancelling ctx
// stops following without an error. Fails with [ErrNoBuildLog] if the
// recipe was never built.
func (t *Task) Log(ctx context.Context, w io.Writer, follow bool) error {
	f, err := os.Open(t.Recipe.BuildLog())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoBuildLog, t.Recipe.Name)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		if _, err := io.Copy(w, f); err != nil {
			return err
		}
		if !follow {
			return nil
		}

		if ctx.Err() != nil {
			return nil
		}
		locked, err := t.Lock.IsLocked(ctx)
		if err != nil {
			return err
		}
		if !locked {
			_, err := io.Copy(w, f)
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(logPollInterval):
		}
	}
}

// Reports whether err came from a failed build action rather than from
// the coordination around it.
func IsBuildFailure(err error) bool {
	return errors.Is(err, ErrBuild)
}
