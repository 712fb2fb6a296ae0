package runtime

import "errors"

var (
	ErrRuntime        = errors.New("container runtime error")
	ErrEmptyArchive   = errors.New("OCI archive holds no image")
	ErrMultipleImages = errors.New("OCI archive holds more than one image")
)
