package environment

import "errors"

var (
	ErrEnvironment    = errors.New("build environment error")
	ErrUnknownBackend = errors.New("unknown environment backend")
	ErrNotUp          = errors.New("environment is not up")
	ErrBusyCheck      = errors.New("busy check failed")
)
