//go:build linux && (amd64 || arm64)

package lock

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const (

	// semctl commands from <linux/sem.h>, not exported by x/sys/unix.
	semGetVal = 12
	semSetVal = 16

	// Permissions of semaphore sets created by this store. Any local user
	// may observe or set a recipe lock.
	semMode = 0o666
)

// Lock store backed by System V semaphore sets.
//
// Each key addresses a set containing a single semaphore. Sets persist in
// the kernel until removed or until the host reboots.
type SemaphoreStore struct{}

// Returns a semaphore store. No kernel objects are created until a lock is
// set.
func OpenSemaphore() (*SemaphoreStore, error) {
	return &SemaphoreStore{}, nil
}

// Returns the semaphore value, zero if the set does not exist.
func (s *SemaphoreStore) Value(ctx context.Context, key Key) (int, error) {
	id, err := semget(key, 0)
	if errors.Is(err, unix.ENOENT) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: semget %d: %w", ErrLockStore, key, err)
	}

	val, err := semctl(id, semGetVal, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: semctl GETVAL %d: %w", ErrLockStore, key, err)
	}
	return val, nil
}

// Creates the set if needed and sets its value to one.
func (s *SemaphoreStore) Set(ctx context.Context, key Key, path string) error {
	id, err := semget(key, unix.IPC_CREAT|semMode)
	if err != nil {
		return fmt.Errorf("%w: semget %d: %w", ErrLockStore, key, err)
	}

	if _, err := semctl(id, semSetVal, 1); err != nil {
		return fmt.Errorf("%w: semctl SETVAL %d: %w", ErrLockStore, key, err)
	}
	return nil
}

// Removes the set.
func (s *SemaphoreStore) Clear(ctx context.Context, key Key) error {
	id, err := semget(key, 0)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: semget %d: %w", ErrLockStore, key, err)
	}

	if _, err := semctl(id, unix.IPC_RMID, 0); err != nil && !errors.Is(err, unix.EIDRM) && !errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("%w: semctl IPC_RMID %d: %w", ErrLockStore, key, err)
	}
	return nil
}

// Nothing to release; semaphore sets are kernel objects.
func (s *SemaphoreStore) Close() error {
	return nil
}

func semget(key Key, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), 1, uintptr(flags))
	if errno != 0 {
		return -1, errno
	}
	return int(id), nil
}

func semctl(id, cmd, arg int) (int, error) {
	r, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(cmd), uintptr(arg), 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
