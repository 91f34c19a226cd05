package cli

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/paths"
)

// Written by 'spacebake init'. Commented out top to bottom so the file
// parses as the default descriptor until the user uncomments a field.
//
//go:embed starter.yaml
var starterDescriptor []byte

// Represents the 'spacebake init' command.
type InitCmd struct {
	Dir   string `arg:"" optional:"" default:"." help:"Directory to write the descriptor into." type:"path"`
	Force bool   `help:"Overwrite an existing descriptor."`
}

func (c *InitCmd) Run(ctx context.Context) error {
	target := filepath.Join(c.Dir, descriptor.DefaultName)

	if !c.Force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", target)
		}
	}

	if err := os.WriteFile(target, starterDescriptor, paths.DefaultFileMode); err != nil {
		return err
	}

	slog.Info("descriptor written", "path", target)
	return nil
}
