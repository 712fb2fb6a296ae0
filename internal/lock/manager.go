package lock

import (
	"context"
	"fmt"
	"log/slog"
)

// Guards one recipe's lock object.
//
// A manager is bound to a single lock file path for its whole life. It is
// not safe for concurrent use; each build invocation owns its own manager.
type Manager struct {
	store Store  // Store holding the lock object.
	path  string // Lock file path the key was derived from.
	key   Key    // Key derived from path.
	set   bool   // Whether this manager set the lock.
}

// Creates a manager for the lock object derived from lockfile.
func NewManager(store Store, lockfile string) *Manager {
	return &Manager{
		store: store,
		path:  lockfile,
		key:   KeyOf(lockfile),
	}
}

// Returns the key addressing the lock object.
func (m *Manager) Key() Key {
	return m.key
}

// Whether the lock object is held by anyone. Has no side effects.
func (m *Manager) IsLocked(ctx context.Context) (bool, error) {
	val, err := m.store.Value(ctx, m.key)
	if err != nil {
		return false, err
	}
	return val >= 1, nil
}

// Sets the lock and records that this manager owns it.
//
// Setting an already held lock is not an error. Failures of the underlying
// store are reported as [ErrLockCreationFailed].
func (m *Manager) SetLock(ctx context.Context) error {
	if err := m.store.Set(ctx, m.key, m.path); err != nil {
		return fmt.Errorf("%w: key %d: %w", ErrLockCreationFailed, m.key, err)
	}
	m.set = true

	slog.Debug("lock set", "key", m.key, "path", m.path)
	return nil
}

// Clears the lock if, and only if, this manager set it.
func (m *Manager) ReleaseLock(ctx context.Context) error {
	if !m.set {
		return nil
	}
	if err := m.store.Clear(ctx, m.key); err != nil {
		return err
	}
	m.set = false

	slog.Debug("lock released", "key", m.key, "path", m.path)
	return nil
}

// Clears the lock regardless of who set it.
//
// Meant for manual recovery after the owning process died without
// releasing its lock.
func (m *Manager) ForceRelease(ctx context.Context) error {
	if err := m.store.Clear(ctx, m.key); err != nil {
		return err
	}
	m.set = false

	slog.Warn("lock forcibly released", "key", m.key, "path", m.path)
	return nil
}

// Returns the recorded holder when the store keeps one, otherwise nil.
func (m *Manager) Holder(ctx context.Context) (*Holder, error) {
	r, ok := m.store.(HolderReporter)
	if !ok {
		return nil, nil
	}
	return r.Holder(ctx, m.key)
}
