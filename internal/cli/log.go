package cli

import (
	"context"
	"os"
)

// Represents the 'forge log' command.
type LogCmd struct {
	Dir    string `arg:"" optional:"" default:"." type:"existingdir" help:"Recipe directory."`
	Follow bool   `short:"f" help:"Keep printing output while a build holds the recipe lock."`
}

// Executes the log command.
func (c *LogCmd) Run(ctx context.Context) (err error) {
	s, err := openSession(c.Dir)
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	return s.task.Log(ctx, os.Stdout, c.Follow)
}
