package cli

import (
	"context"
	"fmt"

	"github.com/AiCodeCraft/spacebake/internal/client"
)

// Represents the 'spacebake shutdown' command.
type ShutdownCmd struct{}

func (c *ShutdownCmd) Run(ctx context.Context) error {
	if err := client.New(RootCmd.Socket).Shutdown(); err != nil {
		return err
	}

	fmt.Println("daemon stopped")
	return nil
}
