package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/forge/internal/activity"
	"github.com/cruciblehq/forge/internal/lock"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
)

func newTask(t *testing.T, store lock.Store) (*Task, *fakeEnv) {
	t.Helper()
	r := newTestRecipe(t)
	env := &fakeEnv{
		lockfile: r.Lockfile(),
		outputs:  map[string]string{"tar -C " + recipe.DefaultResultDir + " -c .": "result"},
	}
	return NewTask(r, env, store, nil), env
}

func resultAction() string {
	return "tar -C " + recipe.DefaultResultDir + " -c ."
}

func TestTaskRun(t *testing.T) {
	ctx := context.Background()
	task, env := newTask(t, newMemStore())
	task.Options = Options{"variant": "release"}

	status, err := task.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusBuildRequired, status)

	require.NoError(t, task.Run(ctx))

	assert.Equal(t, []string{"up", "provision", "env variant=release make", resultAction(), "halt"}, env.calls)

	data, err := os.ReadFile(task.Recipe.ResultArchive())
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))

	locked, err := task.Lock.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked, "lock held after run")

	status, err = task.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, status)

	saved := (&OptionsStore{Path: task.Recipe.OptionsFile()}).Load()
	assert.Equal(t, Options{"variant": "release"}, saved)
}

func TestTaskStatusUpToDateLeavesEnvironmentAlone(t *testing.T) {
	ctx := context.Background()
	task, env := newTask(t, newMemStore())
	require.NoError(t, task.Recipe.EnsureMeta())
	require.NoError(t, task.Recipe.WriteChecksum())

	status, err := task.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, status)
	assert.Empty(t, env.calls)
}

func TestTaskRunHaltsOnFailure(t *testing.T) {
	upFailure := &remote.ExitError{Command: "vagrant up", Code: 1, Stderr: "no provider"}
	buildFailure := &remote.ExitError{Command: "make", Code: 2, Stderr: "compile error"}
	archiveFailure := &remote.ExitError{Command: "tar", Code: 2, Stderr: "no such directory"}

	tests := []struct {
		name      string
		failures  map[string]error
		wantCalls []string
		wantErr   error
	}{
		{
			name:      "up",
			failures:  map[string]error{"up": upFailure},
			wantCalls: []string{"up", "halt"},
			wantErr:   upFailure,
		},
		{
			name:      "provision",
			failures:  map[string]error{"provision": upFailure},
			wantCalls: []string{"up", "provision", "halt"},
			wantErr:   upFailure,
		},
		{
			name:      "build",
			failures:  map[string]error{"make": buildFailure},
			wantCalls: []string{"up", "provision", "make", "halt"},
			wantErr:   ErrBuild,
		},
		{
			name:      "archive",
			failures:  map[string]error{resultAction(): archiveFailure},
			wantCalls: []string{"up", "provision", "make", resultAction(), "halt"},
			wantErr:   ErrResultRetrievalFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			task, env := newTask(t, newMemStore())
			env.failures = tt.failures

			err := task.Run(ctx)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, env.calls)

			locked, lerr := task.Lock.IsLocked(ctx)
			require.NoError(t, lerr)
			assert.False(t, locked, "lock held after failed run")

			required, cerr := task.Recipe.JobRequired()
			require.NoError(t, cerr)
			assert.True(t, required, "checksum recorded for a failed run")
		})
	}
}

func TestTaskRunReturnsLifecycleErrorUnchanged(t *testing.T) {
	failure := errors.New("provider exploded")
	task, env := newTask(t, newMemStore())
	env.failures = map[string]error{"up": failure}

	err := task.Run(context.Background())
	assert.Same(t, failure, err)
}

func TestTaskRunCombinesHaltFailure(t *testing.T) {
	buildFailure := &remote.ExitError{Command: "make", Code: 2}
	haltFailure := errors.New("halt timed out")

	task, env := newTask(t, newMemStore())
	env.failures = map[string]error{"make": buildFailure, "halt": haltFailure}

	err := task.Run(context.Background())
	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorIs(t, err, haltFailure)
	assert.Equal(t, 1, countCalls(env.calls, "halt"))
}

func TestTaskRunRefusesLockedRecipe(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	task, env := newTask(t, store)

	// Another process holds the lock for the same recipe.
	other := lock.NewManager(store, task.Recipe.Lockfile())
	require.NoError(t, other.SetLock(ctx))

	status, err := task.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, status)

	err = task.Run(ctx)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Empty(t, env.calls)

	// Observing a lock never clears it.
	require.NoError(t, task.Lock.ReleaseLock(ctx))
	locked, err := other.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)
}

// Lock store that cannot set locks.
type unwritableStore struct {
	*memStore
	err error
}

func (s unwritableStore) Set(ctx context.Context, key lock.Key, path string) error {
	return s.err
}

func TestTaskRunKeepsOptionsWithoutLock(t *testing.T) {
	ctx := context.Background()
	task, env := newTask(t, unwritableStore{memStore: newMemStore(), err: errors.New("no space left on device")})

	store := &OptionsStore{Path: task.Recipe.OptionsFile()}
	require.NoError(t, task.Recipe.EnsureMeta())
	require.NoError(t, store.Save(Options{"variant": "release"}))

	task.Options = Options{"variant": "debug"}
	err := task.Run(ctx)

	assert.ErrorIs(t, err, lock.ErrLockCreationFailed)
	assert.Empty(t, env.calls)
	assert.Equal(t, Options{"variant": "release"}, store.Load())
}

func TestTaskRunLockedKeepsOptions(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	task, _ := newTask(t, store)

	saved := &OptionsStore{Path: task.Recipe.OptionsFile()}
	require.NoError(t, task.Recipe.EnsureMeta())
	require.NoError(t, saved.Save(Options{"variant": "release"}))
	require.NoError(t, lock.NewManager(store, task.Recipe.Lockfile()).SetLock(ctx))

	task.Options = Options{"variant": "debug"}
	assert.ErrorIs(t, task.Run(ctx), ErrLocked)
	assert.Equal(t, Options{"variant": "release"}, saved.Load())
}

type fakeProbe struct {
	building bool
	err      error
}

func (p fakeProbe) IsBuilding(ctx context.Context, logPath string) (bool, error) {
	return p.building, p.err
}

func TestTaskIsBuilding(t *testing.T) {
	unavailable := activity.ErrProbeUnavailable

	tests := []struct {
		name    string
		probe   activity.Probe
		busy    bool
		busyErr error
		want    bool
	}{
		{name: "probe says building", probe: fakeProbe{building: true}, want: true},
		{name: "probe says idle on a shared busy host", probe: fakeProbe{}, busy: true, want: false},
		{name: "probe failed, environment busy", probe: fakeProbe{err: unavailable}, busy: true, want: true},
		{name: "probe failed, busy check failed", probe: fakeProbe{err: unavailable}, busyErr: errors.New("ssh"), want: false},
		{name: "no probe", busy: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, env := newTask(t, newMemStore())
			task.Probe = tt.probe
			env.busy = tt.busy
			env.busyErr = tt.busyErr

			assert.Equal(t, tt.want, task.IsBuilding(context.Background()))
		})
	}
}

func TestTaskLog(t *testing.T) {
	ctx := context.Background()
	task, _ := newTask(t, newMemStore())

	var out bytes.Buffer
	assert.ErrorIs(t, task.Log(ctx, &out, false), ErrNoBuildLog)

	require.NoError(t, task.Recipe.EnsureMeta())
	require.NoError(t, os.WriteFile(task.Recipe.BuildLog(), []byte("==> job 1: make\n"), 0o644))

	require.NoError(t, task.Log(ctx, &out, false))
	assert.Equal(t, "==> job 1: make\n", out.String())
}

func TestTaskLogFollow(t *testing.T) {
	defer func(d time.Duration) { logPollInterval = d }(logPollInterval)
	logPollInterval = 10 * time.Millisecond

	ctx := context.Background()
	store := newMemStore()
	task, _ := newTask(t, store)

	// A build in another process holds the lock and the log.
	builder := lock.NewManager(store, task.Recipe.Lockfile())
	require.NoError(t, builder.SetLock(ctx))
	require.NoError(t, task.Recipe.EnsureMeta())
	log, err := os.Create(task.Recipe.BuildLog())
	require.NoError(t, err)
	defer log.Close()
	_, err = log.WriteString("cc -c main.c\n")
	require.NoError(t, err)

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- task.Log(ctx, &out, true)
	}()

	time.Sleep(5 * logPollInterval)
	_, err = log.WriteString("cc -o app main.o\n")
	require.NoError(t, err)
	require.NoError(t, builder.ReleaseLock(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Log kept following after the lock was released")
	}
	assert.Equal(t, "cc -c main.c\ncc -o app main.o\n", out.String())
}

func TestTaskLogFollowStopsOnCancel(t *testing.T) {
	defer func(d time.Duration) { logPollInterval = d }(logPollInterval)
	logPollInterval = 10 * time.Millisecond

	store := newMemStore()
	task, _ := newTask(t, store)
	require.NoError(t, lock.NewManager(store, task.Recipe.Lockfile()).SetLock(context.Background()))
	require.NoError(t, task.Recipe.EnsureMeta())
	require.NoError(t, os.WriteFile(task.Recipe.BuildLog(), nil, 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	assert.NoError(t, task.Log(ctx, &out, true))
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}
