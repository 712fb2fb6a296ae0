package build

import (
	"context"
	"fmt"
)

// Build status of a recipe.
type Status int

const (
	StatusLocked        Status = iota + 1 // Another build holds the recipe lock.
	StatusUpToDate                        // Recipe unchanged since the last successful build.
	StatusBuildRequired                   // Recipe changed or never built.
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusUpToDate:
		return "up to date"
	case StatusBuildRequired:
		return "build required"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Reports whether the recipe lock is held. Satisfied by [lock.Manager].
type Locker interface {
	IsLocked(ctx context.Context) (bool, error)
}

// Reports whether the recipe changed since its last recorded build.
// Satisfied by [recipe.Recipe].
type Staleness interface {
	JobRequired() (bool, error)
}

// Resolves the build status. The lock takes priority over the checksum,
// which is not consulted for a locked recipe.
func ResolveStatus(ctx context.Context, l Locker, s Staleness) (Status, error) {
	locked, err := l.IsLocked(ctx)
	if err != nil {
		return 0, err
	}
	if locked {
		return StatusLocked, nil
	}

	required, err := s.JobRequired()
	if err != nil {
		return 0, err
	}
	if required {
		return StatusBuildRequired, nil
	}
	return StatusUpToDate, nil
}
