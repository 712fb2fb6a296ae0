package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBuild                 = errors.New("build failed")
	ErrLocked                = errors.New("recipe is locked by another build")
	ErrResultRetrievalFailed = errors.New("result retrieval failed")
	ErrOptions               = errors.New("build options error")
	ErrNoBuildLog            = errors.New("recipe has no build log")
)

// Returned when the build result cannot be archived locally. Matches
// [ErrResultRetrievalFailed] with [errors.Is].
type ResultRetrievalError struct {
	Stderr string // Diagnostic output of the remote archive command, verbatim.
	Err    error  // Underlying failure.
}

func (e *ResultRetrievalError) Error() string {
	msg := fmt.Sprintf("%s: %v", ErrResultRetrievalFailed, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" && !strings.Contains(msg, s) {
		msg += ": " + s
	}
	return msg
}

func (e *ResultRetrievalError) Is(target error) bool {
	return target == ErrResultRetrievalFailed
}

func (e *ResultRetrievalError) Unwrap() error {
	return e.Err
}
