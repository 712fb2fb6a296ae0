package lock

import (
	"context"
	"fmt"
	"time"
)

// Names a lock store implementation.
type Backend string

const (
	BackendSQLite    Backend = "sqlite"    // Lock broker database, portable.
	BackendSemaphore Backend = "semaphore" // System V semaphores, Linux only.
)

// Holds system-wide lock objects addressed by [Key].
//
// Implementations must be usable from several processes at once. A value
// of zero means unlocked; one or more means locked.
type Store interface {

	// Returns the current value of the lock object. A lock object that was
	// never created reads as zero.
	Value(ctx context.Context, key Key) (int, error)

	// Sets the lock object to one, creating it if needed. The path is the
	// lock file the key was derived from and may be recorded for diagnostics.
	Set(ctx context.Context, key Key, path string) error

	// Clears the lock object. Clearing an absent object is not an error.
	Clear(ctx context.Context, key Key) error

	// Releases resources held by the store. Lock state is not affected.
	Close() error
}

// Describes the process that set a lock, when the backend records it.
type Holder struct {
	Path       string    // Lock file path the key was derived from.
	PID        int       // Process ID of the setter.
	Hostname   string    // Host the setter ran on.
	AcquiredAt time.Time // When the lock was set.
}

// Implemented by stores that record who set a lock.
type HolderReporter interface {

	// Returns the holder of the lock, or nil if the lock is not held.
	Holder(ctx context.Context, key Key) (*Holder, error)
}

// Opens the store for the named backend.
//
// The database path is only used by [BackendSQLite]. An empty backend
// selects sqlite.
func Open(backend Backend, database string) (Store, error) {
	switch backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(database)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSemaphore:
		s, err := OpenSemaphore()
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
