//go:build !(linux && (amd64 || arm64))

package lock

import "context"

// Lock store backed by System V semaphore sets. Unavailable on this
// platform; use the sqlite backend instead.
type SemaphoreStore struct{}

// Always fails with [ErrUnsupportedBackend].
func OpenSemaphore() (*SemaphoreStore, error) {
	return nil, ErrUnsupportedBackend
}

func (s *SemaphoreStore) Value(ctx context.Context, key Key) (int, error) {
	return 0, ErrUnsupportedBackend
}

func (s *SemaphoreStore) Set(ctx context.Context, key Key, path string) error {
	return ErrUnsupportedBackend
}

func (s *SemaphoreStore) Clear(ctx context.Context, key Key) error {
	return ErrUnsupportedBackend
}

func (s *SemaphoreStore) Close() error {
	return nil
}
