package cli

import (
	"context"
	"fmt"

	"github.com/AiCodeCraft/spacebake/internal/client"
)

// Represents the 'spacebake status' command.
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context) error {
	status, err := client.New(RootCmd.Socket).Status()
	if err != nil {
		return err
	}

	fmt.Printf("running  %t\n", status.Running)
	fmt.Printf("version  %s\n", status.Version)
	fmt.Printf("pid      %d\n", status.Pid)
	fmt.Printf("uptime   %s\n", status.Uptime)
	fmt.Printf("builds   %d\n", status.Builds)
	return nil
}
