package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/forge/internal"
)

// Represents the 'forge version' command.
type VersionCmd struct {
	Long bool `short:"l" help:"Print each build field on its own line."`
}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	if !c.Long {
		fmt.Println(internal.VersionString())
		return nil
	}

	info := internal.Info()
	fmt.Printf("version:  %s\nstage:    %s\ncommit:   %s\nplatform: %s\n",
		info.Version, info.Stage, info.GitCommit, info.Platform)
	return nil
}
