package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cruciblehq/forge/internal/lock"
	"github.com/cruciblehq/forge/internal/recipe"
	"github.com/cruciblehq/forge/internal/remote"
)

// Environment that records lifecycle calls and actions in order.
type fakeEnv struct {
	lockfile string
	calls    []string
	failures map[string]error  // Keyed by lifecycle step or action.
	outputs  map[string]string // Stdout per action.
	busy     bool
	busyErr  error
}

func (e *fakeEnv) Up(ctx context.Context) error        { return e.record("up") }
func (e *fakeEnv) Provision(ctx context.Context) error { return e.record("provision") }
func (e *fakeEnv) Halt(ctx context.Context) error      { return e.record("halt") }
func (e *fakeEnv) Lockfile() string                    { return e.lockfile }

func (e *fakeEnv) IsBusy(ctx context.Context) (bool, error) {
	return e.busy, e.busyErr
}

func (e *fakeEnv) Command(action string) remote.Command {
	return &fakeCommand{env: e, action: action}
}

func (e *fakeEnv) record(call string) error {
	e.calls = append(e.calls, call)
	return e.failures[call]
}

type fakeCommand struct {
	env    *fakeEnv
	action string
}

func (c *fakeCommand) Run(ctx context.Context, stdout, stderr io.Writer) error {
	if out, ok := c.env.outputs[c.action]; ok && stdout != nil {
		io.WriteString(stdout, out)
	}
	return c.env.record(c.action)
}

func (c *fakeCommand) String() string {
	return c.action
}

// In-memory lock store. Sharing one between managers stands in for two
// processes sharing the system-wide lock.
type memStore struct {
	mu     sync.Mutex
	values map[lock.Key]int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[lock.Key]int)}
}

func (s *memStore) Value(ctx context.Context, key lock.Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memStore) Set(ctx context.Context, key lock.Key, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = 1
	return nil
}

func (s *memStore) Clear(ctx context.Context, key lock.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestRecipe(t *testing.T) *recipe.Recipe {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, recipe.FileName), []byte("build: make\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := recipe.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}
