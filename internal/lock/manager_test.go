package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, db string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(db)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestManagerSetAndRelease(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "locks.db")
	mgr := NewManager(openTestStore(t, db), "/srv/recipes/web/.forge/lock")

	locked, err := mgr.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("fresh lock reported as held")
	}

	if err := mgr.SetLock(ctx); err != nil {
		t.Fatalf("SetLock: %v", err)
	}
	if err := mgr.SetLock(ctx); err != nil {
		t.Fatalf("second SetLock: %v", err)
	}

	locked, err = mgr.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("lock not held after SetLock")
	}

	if err := mgr.ReleaseLock(ctx); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	locked, err = mgr.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("lock still held after ReleaseLock")
	}
}

// Two stores on the same database stand in for two processes.
func TestManagerObserverNeverReleases(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "locks.db")
	const lockfile = "/srv/recipes/web/.forge/lock"

	owner := NewManager(openTestStore(t, db), lockfile)
	observer := NewManager(openTestStore(t, db), lockfile)

	if err := owner.SetLock(ctx); err != nil {
		t.Fatalf("SetLock: %v", err)
	}

	locked, err := observer.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("observer does not see lock set by owner")
	}

	if err := observer.ReleaseLock(ctx); err != nil {
		t.Fatalf("observer ReleaseLock: %v", err)
	}
	locked, err = observer.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("observer released a lock it did not set")
	}

	if err := observer.ForceRelease(ctx); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	locked, err = owner.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("lock still held after ForceRelease")
	}
}

func TestManagerDistinctPaths(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "locks.db")
	store := openTestStore(t, db)

	a := NewManager(store, "/a")
	b := NewManager(store, "/b")
	if a.Key() == b.Key() {
		t.Fatalf("keys collide for /a and /b: %d", a.Key())
	}

	if err := a.SetLock(ctx); err != nil {
		t.Fatalf("SetLock: %v", err)
	}
	locked, err := b.IsLocked(ctx)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("lock on /a leaked to /b")
	}
}

func TestManagerHolder(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "locks.db")
	const lockfile = "/srv/recipes/api/.forge/lock"
	mgr := NewManager(openTestStore(t, db), lockfile)

	h, err := mgr.Holder(ctx)
	if err != nil {
		t.Fatalf("Holder: %v", err)
	}
	if h != nil {
		t.Fatalf("Holder = %+v before SetLock, want nil", h)
	}

	if err := mgr.SetLock(ctx); err != nil {
		t.Fatalf("SetLock: %v", err)
	}
	h, err = mgr.Holder(ctx)
	if err != nil {
		t.Fatalf("Holder: %v", err)
	}
	if h == nil || h.Path != lockfile || h.PID == 0 {
		t.Fatalf("Holder = %+v, want path %q and a pid", h, lockfile)
	}
	if h.AcquiredAt.IsZero() {
		t.Fatal("Holder.AcquiredAt not recorded")
	}
}

type failingStore struct{}

func (failingStore) Value(context.Context, Key) (int, error) { return 0, ErrLockStore }
func (failingStore) Set(context.Context, Key, string) error { return ErrLockStore }
func (failingStore) Clear(context.Context, Key) error { return ErrLockStore }
func (failingStore) Close() error { return nil }

func TestManagerSetLockFailure(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(failingStore{}, "/a")

	err := mgr.SetLock(ctx)
	if !errors.Is(err, ErrLockCreationFailed) {
		t.Fatalf("SetLock error = %v, want ErrLockCreationFailed", err)
	}

	// Nothing was set, so release must not touch the store.
	if err := mgr.ReleaseLock(ctx); err != nil {
		t.Fatalf("ReleaseLock after failed SetLock: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("etcd", "")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Open error = %v, want ErrUnknownBackend", err)
	}
}
