package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/cruciblehq/forge/internal/build"
)

// Represents the 'forge status' command.
type StatusCmd struct {
	Dir string `arg:"" optional:"" default:"." type:"existingdir" help:"Recipe directory."`
}

// Executes the status command.
//
// Prints the build status. For a locked recipe the recorded holder and
// whether a build is actually running are printed too.
func (c *StatusCmd) Run(ctx context.Context) (err error) {
	s, err := openSession(c.Dir)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	status, err := s.task.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", s.recipe.Name, status)

	if status != build.StatusLocked {
		return nil
	}

	holder, err := s.task.Lock.Holder(ctx)
	if err != nil {
		return err
	}
	if holder != nil {
		fmt.Printf("  held by pid %d on %s since %s\n", holder.PID, holder.Hostname, holder.AcquiredAt.Local().Format(time.RFC3339))
	}

	if s.task.IsBuilding(ctx) {
		fmt.Println("  build in progress")
	} else {
		fmt.Println("  no build in progress; run 'forge unlock' if the holder died")
	}
	return nil
}
