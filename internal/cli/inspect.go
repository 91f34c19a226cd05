package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/AiCodeCraft/spacebake/internal/image"
)

// Represents the 'spacebake inspect' command.
type InspectCmd struct {
	Archive string `arg:"" help:"Image archive to inspect." type:"path"`
}

func (c *InspectCmd) Run(ctx context.Context) error {
	summary, err := image.Summarize(c.Archive)
	if err != nil {
		return err
	}

	fmt.Printf("digest:      %s\n", summary.Digest)
	if len(summary.Tags) > 0 {
		fmt.Printf("tags:        %s\n", strings.Join(summary.Tags, ", "))
	}
	fmt.Printf("workdir:     %s\n", summary.WorkingDir)
	if len(summary.Entrypoint) > 0 {
		fmt.Printf("entrypoint:  %s\n", strings.Join(summary.Entrypoint, " "))
	}
	fmt.Printf("command:     %s\n", strings.Join(summary.Cmd, " "))
	fmt.Printf("layers:      %d\n", summary.Layers)
	for _, kv := range summary.Env {
		fmt.Printf("env:         %s\n", kv)
	}
	return nil
}
