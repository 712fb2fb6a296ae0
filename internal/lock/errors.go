package lock

import "errors"

var (
	ErrLockCreationFailed = errors.New("lock creation failed")
	ErrLockStore          = errors.New("lock store error")
	ErrUnknownBackend     = errors.New("unknown lock backend")
	ErrUnsupportedBackend = errors.New("lock backend not supported on this platform")
)
